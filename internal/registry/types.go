package registry

// Status codes from the InOut column.
const (
	StatusIn      = "I"
	StatusOut     = "*"
	StatusPending = "#"
)

// Certificate is a snapshot of one death certificate row. It is never mutated
// after being read; a later lookup may return a newer snapshot.
type Certificate struct {
	ID               int     `gorm:"column:CertificateID" json:"id"`
	RegisteredNumber string  `gorm:"column:Registered Number" json:"registered_number"`
	InOut            string  `gorm:"column:InOut" json:"in_out"`
	DateOfDeath      *string `gorm:"column:Date of Death" json:"date_of_death,omitempty"`
	DecedentName     string  `gorm:"column:Decedent Name" json:"decedent_name"`
	LastName         string  `gorm:"column:Last Name" json:"last_name"`
	FirstName        string  `gorm:"column:First Name" json:"first_name"`
	RegisteredYear   string  `gorm:"column:RegisteredYear" json:"registered_year"`
	AgeOrDateOfBirth string  `gorm:"column:AgeOrDateOfBirth" json:"age_or_date_of_birth"`
	Pending          int     `gorm:"column:Pending" json:"pending"`
}

// IsPending reports whether the registry has not finished recording the certificate.
func (c *Certificate) IsPending() bool {
	return c.Pending != 0 || c.InOut == StatusPending
}

// SearchRow is one row of a search result set. ResultCount is the total
// number of matches across all pages and repeats on every row.
type SearchRow struct {
	Certificate
	ResultCount int `gorm:"column:ResultCount" json:"result_count"`
}

// SearchResultSet is what the store returns for a search. A nil set means the
// store produced no result set at all, which differs from an empty one.
type SearchResultSet struct {
	Rows []SearchRow
}

// SearchQuery is the input to Registry.Search. Page is 1-indexed.
type SearchQuery struct {
	Query     string
	Page      int
	PageSize  int
	StartYear *int
	EndYear   *int
}

// SearchResultPage is one page of search results plus paging metadata.
type SearchResultPage struct {
	Results     []Certificate `json:"results"`
	ResultCount int           `json:"result_count"`
	Page        int           `json:"page"`
	PageSize    int           `json:"page_size"`
	PageCount   int           `json:"page_count"`
}

// Start is the 1-indexed position of the first result on this page, or 0 when
// the page is empty.
func (p *SearchResultPage) Start() int {
	if len(p.Results) == 0 {
		return 0
	}
	return (p.Page-1)*p.PageSize + 1
}

// End is the 1-indexed position of the last result on this page.
func (p *SearchResultPage) End() int {
	if len(p.Results) == 0 {
		return 0
	}
	return p.Start() + len(p.Results) - 1
}

func pageCount(resultCount, pageSize int) int {
	if resultCount <= 0 || pageSize <= 0 {
		return 0
	}
	pages := resultCount / pageSize
	if resultCount%pageSize != 0 {
		pages++
	}
	return pages
}
