package pagination

// Pagination carries page/limit query parameters for list endpoints.
type Pagination struct {
	Page  int `form:"page,default=1" validate:"gte=1"`
	Limit int `form:"limit,default=20" validate:"gte=1,lte=250"` // Min 1, Max 250
}

func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = 20
	}
	if p.Limit > 250 {
		p.Limit = 250
	}
	return p
}

func (p Pagination) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Limit
}

type PageInfo struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}
