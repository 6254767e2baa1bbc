package dto

// PageRequest paginación de listados (?limit=20&offset=0).
type PageRequest struct {
	Limit  int `query:"limit"`
	Offset int `query:"offset"`
}

// Normalize limit fuera de 1..100 pasa a 20; offset negativo pasa a 0.
func (p *PageRequest) Normalize() {
	if p.Limit <= 0 || p.Limit > 100 {
		p.Limit = 20
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
}

// PageResponse metadatos de página. Total cuenta todos los registros, no solo los de la página.
type PageResponse struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total"`
}

// Paginate recorta items a la página pedida y devuelve sus metadatos.
func Paginate[T any](items []T, p PageRequest) ([]T, PageResponse) {
	start := min(p.Offset, len(items))
	end := min(start+p.Limit, len(items))
	return items[start:end], PageResponse{Limit: p.Limit, Offset: p.Offset, Total: len(items)}
}

// ErrorResponse cuerpo de error HTTP. Code es estable (VALIDATION, OVERPAYMENT, ...).
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
