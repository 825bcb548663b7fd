package domain

import "strings"

// SizeTypeName identifica um tipo de talle (dado de referência compartilhado).
type SizeTypeName string

const (
	SizeTypeClothing SizeTypeName = "ropa"
	SizeTypePants    SizeTypeName = "pantalon"
	SizeTypeLeather  SizeTypeName = "marroquineria"
)

// UniqueSizeValue é o único talle aceito por produtos de marroquinaria.
const UniqueSizeValue = "Único"

// categorySizeTypes é a tabela categoria → tipo de talle.
// Toda validação de compatibilidade passa por SizeTypeFor.
var categorySizeTypes = map[Category]SizeTypeName{
	CategoryTShirts:     SizeTypeClothing,
	CategorySweatshirts: SizeTypeClothing,
	CategoryPants:       SizeTypePants,
	CategoryLeather:     SizeTypeLeather,
}

// SizeTypeFor retorna o tipo de talle permitido para a categoria.
func SizeTypeFor(c Category) (SizeTypeName, bool) {
	t, ok := categorySizeTypes[c]
	return t, ok
}

// NormalizeSizeType normaliza o nome recebido em rotas e payloads.
func NormalizeSizeType(raw string) SizeTypeName {
	return SizeTypeName(strings.ToLower(strings.TrimSpace(raw)))
}

// SizeType agrupa talles (ropa, pantalon, marroquineria...).
type SizeType struct {
	ID   int64        `json:"id"`
	Name SizeTypeName `json:"name"`
}

// Size é um valor de talle, único dentro do seu tipo.
type Size struct {
	ID         int64        `json:"id"`
	SizeTypeID int64        `json:"size_type_id"`
	TypeName   SizeTypeName `json:"size_type"`
	Value      string       `json:"size"`
}

// SizeEntry é uma linha de talle/estoque recebida na escrita.
// Pode referenciar o talle por ID ou por {size_type, size_value};
// sem size_type, o valor é procurado no tipo da categoria.
type SizeEntry struct {
	SizeID    int64  `json:"size_id"`
	SizeType  string `json:"size_type"`
	SizeValue string `json:"size_value"`
	Stock     int    `json:"stock"`
}

// SizeStock é a linha persistida em product_sizes, já resolvida e validada.
type SizeStock struct {
	SizeID int64 `json:"size_id"`
	Stock  int   `json:"stock"`
}

// SizeStockItem é a projeção de leitura de uma linha de estoque.
type SizeStockItem struct {
	SizeID int64  `json:"size_id"`
	Value  string `json:"size"`
	Stock  int    `json:"stock"`
}

// SizeGroup agrupa as linhas de estoque de um produto por tipo de talle.
type SizeGroup struct {
	Type  SizeTypeName    `json:"type"`
	Items []SizeStockItem `json:"items"`
}
