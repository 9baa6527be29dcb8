package pagination

const (
	// DefaultPage is the first page served when none is requested.
	DefaultPage = 1
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 10
	// MaxLimit caps how many rows any listing query can request.
	MaxLimit = 100
)

// Params holds page pagination inputs from controllers or services.
type Params struct {
	Page  int
	Limit int
}

// Meta describes the page window returned alongside list results.
type Meta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// NormalizeLimit enforces the configured default and maximum limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// NormalizePage clamps the requested page to a positive value.
func NormalizePage(page int) int {
	if page <= 0 {
		return 1
	}
	return page
}

// Normalize returns a copy of params with page and limit clamped.
func Normalize(params Params) Params {
	return Params{
		Page:  NormalizePage(params.Page),
		Limit: NormalizeLimit(params.Limit),
	}
}

// Offset computes the row offset for the normalized page window.
func (p Params) Offset() int {
	return (NormalizePage(p.Page) - 1) * NormalizeLimit(p.Limit)
}

// MetaFor builds the response metadata for a total row count.
func MetaFor(params Params, total int64) Meta {
	params = Normalize(params)
	pages := int((total + int64(params.Limit) - 1) / int64(params.Limit))
	if pages < 1 {
		pages = 1
	}
	return Meta{
		Page:       params.Page,
		Limit:      params.Limit,
		Total:      total,
		TotalPages: pages,
	}
}
