package storage

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"pololo/internal/domain"
	apperror "pololo/internal/errors"
	"pololo/internal/pkg/logger"
)

// ImageStore é o adaptador de armazenamento de imagens.
// Save devolve uma referência pública (URL/caminho) que Delete aceita de volta.
type ImageStore interface {
	Save(ctx context.Context, img domain.ImageUpload) (string, error)
	Delete(ctx context.Context, ref string) error
}

// allowedTypes mapeia os content types aceitos para a extensão gravada em disco.
var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// CheckImage valida tipo e tamanho de uma imagem antes de qualquer escrita.
func CheckImage(img domain.ImageUpload, maxBytes int64) error {
	if len(img.Data) == 0 {
		return apperror.NewFieldError("images", fmt.Sprintf("arquivo '%s' vazio", img.Filename))
	}
	if maxBytes > 0 && int64(len(img.Data)) > maxBytes {
		return apperror.NewFieldError("images", fmt.Sprintf("arquivo '%s' excede %d bytes", img.Filename, maxBytes))
	}
	if _, ok := allowedTypes[detectType(img)]; !ok {
		return apperror.NewFieldError("images", fmt.Sprintf("arquivo '%s' não é jpeg, png ou webp", img.Filename))
	}
	return nil
}

// detectType confia no conteúdo, não no header enviado pelo cliente.
func detectType(img domain.ImageUpload) string {
	ct := http.DetectContentType(img.Data)
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	return ct
}

// LocalDiskStore grava as imagens em um diretório servido em PublicPath.
type LocalDiskStore struct {
	Dir        string
	PublicPath string
	MaxBytes   int64
	logger     logger.Logger
}

// NewLocalDiskStore cria o diretório de uploads se necessário.
func NewLocalDiskStore(dir, publicPath string, maxBytes int64, logger logger.Logger) (*LocalDiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("falha ao criar diretório de uploads %s: %w", dir, err)
	}
	return &LocalDiskStore{
		Dir:        dir,
		PublicPath: strings.TrimRight(publicPath, "/"),
		MaxBytes:   maxBytes,
		logger:     logger,
	}, nil
}

// Save grava a imagem com um nome aleatório e devolve "<PublicPath>/<nome>".
func (s *LocalDiskStore) Save(ctx context.Context, img domain.ImageUpload) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", apperror.NewStorageError("Upload cancelado", err)
	}
	if err := CheckImage(img, s.MaxBytes); err != nil {
		return "", err
	}

	name := uuid.New().String() + allowedTypes[detectType(img)]
	if err := os.WriteFile(filepath.Join(s.Dir, name), img.Data, 0o644); err != nil {
		s.logger.Error("Falha ao gravar imagem em disco.", err)
		return "", apperror.NewStorageError("Falha ao gravar imagem", err)
	}

	ref := path.Join(s.PublicPath, name)
	s.logger.Debug("Imagem armazenada.", map[string]interface{}{"ref": ref, "bytes": len(img.Data)})
	return ref, nil
}

// Delete remove o arquivo referenciado. Referência já ausente não é erro.
func (s *LocalDiskStore) Delete(ctx context.Context, ref string) error {
	name, err := s.fileName(ref)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(s.Dir, name))
	if err != nil && !os.IsNotExist(err) {
		s.logger.Error("Falha ao remover imagem do disco.", err)
		return apperror.NewStorageError("Falha ao remover imagem", err)
	}
	return nil
}

// fileName extrai o nome do arquivo e recusa referências fora do diretório de uploads.
func (s *LocalDiskStore) fileName(ref string) (string, error) {
	name := strings.TrimPrefix(ref, s.PublicPath+"/")
	if name == "" || name == ref || strings.ContainsAny(name, `/\`) || name == ".." {
		return "", apperror.NewFieldError("image", fmt.Sprintf("referência de imagem inválida: %s", ref))
	}
	return name, nil
}

// DeleteAll remove várias referências sem interromper no primeiro erro.
// Usado na compensação de escritas e na limpeza pós-commit.
func DeleteAll(ctx context.Context, store ImageStore, refs []string, log logger.Logger) {
	for _, ref := range refs {
		if ref == "" {
			continue
		}
		if err := store.Delete(ctx, ref); err != nil {
			log.Warn("Imagem órfã não removida.", map[string]interface{}{"ref": ref, "error": err.Error()})
		}
	}
}
