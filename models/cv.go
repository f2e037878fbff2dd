package models

import "time"

// CV persists a generated document's form payload for an authenticated
// user. The section fields hold the raw JSON blobs submitted by the form
// wizard; the backend never interprets them beyond forwarding to the LLM.
type CV struct {
	ID             uint      `gorm:"primarykey" json:"id"`
	UserID         uint      `gorm:"index;not null" json:"userId"`
	CVType         string    `gorm:"type:varchar(50)" json:"cvType"`
	JobPost        string    `gorm:"type:text" json:"jobPost"`
	PersonalInfo   string    `gorm:"type:text" json:"personalInfo"`
	Education      string    `gorm:"type:text" json:"education"`
	Experience     string    `gorm:"type:text" json:"experience"`
	Skills         string    `gorm:"type:text" json:"skills"`
	Projects       string    `gorm:"type:text" json:"projects"`
	Certifications string    `gorm:"type:text" json:"certifications"`
	Languages      string    `gorm:"type:text" json:"languages"`
	PdfCvURL       string    `gorm:"type:text" json:"pdfcvUrl"`
	PdfCoverURL    string    `gorm:"type:text" json:"pdfcoverUrl"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName specifies the table name for the CV model.
func (CV) TableName() string {
	return "cvs"
}
