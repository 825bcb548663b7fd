package domain

// MainImageSource descreve qual regra decidiu a imagem principal.
type MainImageSource int

const (
	MainImageNone MainImageSource = iota
	MainImageExplicitID
	MainImageExplicitIndex
	MainImagePrevious
	MainImageFirst
)

func (s MainImageSource) String() string {
	switch s {
	case MainImageExplicitID:
		return "explicit_id"
	case MainImageExplicitIndex:
		return "explicit_index"
	case MainImagePrevious:
		return "previous"
	case MainImageFirst:
		return "first"
	default:
		return "none"
	}
}

// MainImageRequest reúne o estado necessário para decidir a imagem principal.
// Existing são as imagens já persistidas (ordenadas por ID) e NewIDs os IDs das
// imagens recém-inseridas, na ordem do upload.
type MainImageRequest struct {
	Existing    []ProductImage
	NewIDs      []int64
	ExplicitID  *int64
	ExplicitIdx *int
}

// ResolveMainImage aplica a ordem: ID explícito > índice explícito nas novas imagens >
// principal anterior > primeira disponível > nenhuma.
// Referências inválidas caem para a regra seguinte. Retorna o ID escolhido (0 para nenhuma).
func ResolveMainImage(req MainImageRequest) (MainImageSource, int64) {
	if req.ExplicitID != nil {
		id := *req.ExplicitID
		for _, img := range req.Existing {
			if img.ID == id {
				return MainImageExplicitID, id
			}
		}
		for _, newID := range req.NewIDs {
			if newID == id {
				return MainImageExplicitID, id
			}
		}
	}

	if req.ExplicitIdx != nil {
		idx := *req.ExplicitIdx
		if idx >= 0 && idx < len(req.NewIDs) {
			return MainImageExplicitIndex, req.NewIDs[idx]
		}
	}

	for _, img := range req.Existing {
		if img.IsMain {
			return MainImagePrevious, img.ID
		}
	}

	if len(req.Existing) > 0 {
		return MainImageFirst, lowestID(req.Existing)
	}
	if len(req.NewIDs) > 0 {
		return MainImageFirst, req.NewIDs[0]
	}

	return MainImageNone, 0
}

func lowestID(images []ProductImage) int64 {
	lowest := images[0].ID
	for _, img := range images[1:] {
		if img.ID < lowest {
			lowest = img.ID
		}
	}
	return lowest
}
