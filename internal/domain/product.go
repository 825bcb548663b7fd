package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Category é o conjunto fechado de categorias do catálogo.
type Category string

const (
	CategoryLeather     Category = "marroquineria"
	CategoryTShirts     Category = "remeras"
	CategoryPants       Category = "pantalones"
	CategorySweatshirts Category = "buzos"
)

// MaxImagesPerWrite é o limite de imagens por requisição de escrita de produto.
const MaxImagesPerWrite = 5

// Categories lista as categorias válidas na ordem exibida pela loja.
var Categories = []Category{CategoryLeather, CategoryTShirts, CategoryPants, CategorySweatshirts}

// ParseCategory normaliza (trim + minúsculas) e valida a categoria recebida.
func ParseCategory(raw string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Categories {
		if c == known {
			return c, true
		}
	}
	return "", false
}

// Product representa o item principal do catálogo (a Entidade).
// ImageURL é derivado: é sempre a URL da ProductImage marcada como principal, ou vazio.
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Category    Category        `json:"category"`
	Subcategory string          `json:"subcategory"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Active      bool            `json:"active"`
	ImageURL    string          `json:"image"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ProductImage pertence exclusivamente a um Product.
type ProductImage struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"product_id"`
	URL       string `json:"url"`
	IsMain    bool   `json:"is_main"`
}

// ImageUpload é o conteúdo bruto de uma imagem enviada pelo admin.
type ImageUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ProductInput é o payload de escrita (create/update) já decodificado pelo Handler.
//
// Em update, MainImageID tem precedência sobre MainImageIndex (índice nas novas imagens).
// ReplaceSizes indica que Sizes foi enviado (mesmo vazio) e substitui os talles atuais;
// quando falso, os talles existentes não são tocados.
type ProductInput struct {
	Name           string
	Category       string
	Subcategory    string
	Description    string
	Price          decimal.Decimal
	Active         *bool
	Images         []ImageUpload
	MainImageIndex *int
	MainImageID    *int64
	Sizes          []SizeEntry
	ReplaceSizes   bool
}

// ProductWrite é o comando validado entregue ao repositório agregado.
type ProductWrite struct {
	Product        Product
	NewImageURLs   []string
	MainImageIndex *int
	MainImageID    *int64
	Sizes          []SizeStock
	ReplaceSizes   bool
	KeepActive     bool // em update, Active não informado mantém o valor atual
}

// ProductFilter define os filtros da listagem pública. Todos compõem com AND.
type ProductFilter struct {
	Category        string
	Subcategory     string
	Search          string
	Size            string
	IncludeInactive bool
}

// ProductSummary é a projeção usada nas listagens.
type ProductSummary struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Category    Category        `json:"category"`
	Subcategory string          `json:"subcategory"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"image"`
	Active      bool            `json:"active"`
	StockTotal  int             `json:"stock_total"`
}

// ProductDetail é a projeção completa de um produto.
type ProductDetail struct {
	Product
	Images     []ProductImage `json:"images"`
	Sizes      []SizeGroup    `json:"sizes"`
	StockTotal int            `json:"stock_total"`
}

// SearchResult é a projeção leve usada pelo autocomplete.
type SearchResult struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}
