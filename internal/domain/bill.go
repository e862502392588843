package domain

// BillStatus is the review state of a bill.
type BillStatus string

const (
	StatusPending  BillStatus = "pending"
	StatusAccepted BillStatus = "accepted"
	StatusRefused  BillStatus = "refused"
)

// Valid reports whether s is one of the known statuses.
func (s BillStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRefused:
		return true
	}
	return false
}

// Bill represents one expense report submitted by an employee.
// Date is kept as the ISO "YYYY-MM-DD" string the form submits; display
// ordering compares it as a string.
type Bill struct {
	ID           string     `json:"id"`
	Type         string     `json:"type"`
	Name         string     `json:"name"`
	Date         string     `json:"date"`
	Amount       float64    `json:"amount"`
	VAT          string     `json:"vat"`
	Pct          int        `json:"pct"`
	Commentary   string     `json:"commentary"`
	FileURL      string     `json:"fileUrl"`
	FileName     string     `json:"fileName"`
	Status       BillStatus `json:"status"`
	Email        string     `json:"email"`
	CommentAdmin string     `json:"commentAdmin,omitempty"`
}

// HasReceipt reports whether the bill references a stored receipt.
func (b Bill) HasReceipt() bool {
	return b.FileURL != "" && b.FileURL != "null"
}

// Receipt is the stored copy of an uploaded receipt file.
type Receipt struct {
	FileURL  string `json:"fileUrl"`
	Key      string `json:"key"`
	FileName string `json:"fileName"`
}
