package domain

// CarouselItem é um slide do carrossel da home.
type CarouselItem struct {
	ID             int64  `json:"id"`
	ImageURL       string `json:"image_url"`
	MobileImageURL string `json:"mobile_image_url,omitempty"`
	Title          string `json:"title,omitempty"`
	Position       int    `json:"position"`
	Active         bool   `json:"active"`
}

// CarouselInput é o comando de criação de um slide.
type CarouselInput struct {
	Image       ImageUpload
	MobileImage *ImageUpload
	Title       string
	Position    int
}

// CarouselPatch é uma atualização parcial: campos nil são mantidos.
type CarouselPatch struct {
	Title    *string `json:"title"`
	Position *int    `json:"position" validate:"omitempty,min=0"`
	Active   *bool   `json:"active"`
}

// FeaturedProduct aponta para um produto do catálogo exibido na home.
type FeaturedProduct struct {
	ID        int64          `json:"id"`
	ProductID int64          `json:"product_id"`
	Position  int            `json:"position"`
	Active    bool           `json:"active"`
	Product   *Product       `json:"product,omitempty"`
	Images    []ProductImage `json:"images,omitempty"`
}

// FeaturedInput cria um destaque.
type FeaturedInput struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Position  int   `json:"position" validate:"min=0"`
}

// FeaturedPatch é uma atualização parcial de um destaque.
type FeaturedPatch struct {
	ProductID *int64 `json:"product_id" validate:"omitempty,gt=0"`
	Position  *int   `json:"position" validate:"omitempty,min=0"`
	Active    *bool  `json:"active"`
}

// HomePage é a resposta pública de GET /api/home.
type HomePage struct {
	Carousel         []CarouselItem    `json:"carousel"`
	FeaturedProducts []FeaturedProduct `json:"featured_products"`
}
