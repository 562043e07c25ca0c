package clients

import (
	"fmt"
	"strings"
	"time"

	"github.com/nutrivibes/api/internal/storage"
)

// ClientDTO is the API representation of a roster entry.
type ClientDTO struct {
	ID         string  `json:"id"`
	FullName   string  `json:"full_name"`
	Email      string  `json:"email"`
	Phone      *string `json:"phone,omitempty"`
	BirthDate  *string `json:"birth_date,omitempty"`
	Sex        *string `json:"sex,omitempty"`
	HeightCm   *int    `json:"height_cm,omitempty"`
	Goal       *string `json:"goal,omitempty"`
	Allergies  *string `json:"allergies,omitempty"`
	Notes      *string `json:"notes,omitempty"`
	IsArchived bool    `json:"is_archived"`
	CreatedAt  string  `json:"created_at"`
	UpdatedAt  string  `json:"updated_at"`
}

// UpsertClientRequest is the create/update payload.
type UpsertClientRequest struct {
	FullName  string  `json:"full_name"`
	Email     string  `json:"email"`
	Phone     *string `json:"phone"`
	BirthDate *string `json:"birth_date"`
	Sex       *string `json:"sex"`
	HeightCm  *int    `json:"height_cm"`
	Goal      *string `json:"goal"`
	Allergies *string `json:"allergies"`
	Notes     *string `json:"notes"`
}

// Validate checks the payload before it reaches storage.
func (r *UpsertClientRequest) Validate() error {
	r.FullName = strings.TrimSpace(r.FullName)
	r.Email = strings.TrimSpace(strings.ToLower(r.Email))

	if r.FullName == "" {
		return fmt.Errorf("full_name is required")
	}
	if len(r.FullName) > 200 {
		return fmt.Errorf("full_name is too long")
	}
	if r.Email == "" || !strings.Contains(r.Email, "@") {
		return fmt.Errorf("valid email is required")
	}
	if r.BirthDate != nil {
		if _, err := time.Parse("2006-01-02", *r.BirthDate); err != nil {
			return fmt.Errorf("birth_date must be YYYY-MM-DD")
		}
	}
	if r.Sex != nil && *r.Sex != "male" && *r.Sex != "female" {
		return fmt.Errorf("sex must be male or female")
	}
	if r.HeightCm != nil && (*r.HeightCm < 50 || *r.HeightCm > 250) {
		return fmt.Errorf("height_cm out of range")
	}
	return nil
}

func toDTO(c *storage.Client) ClientDTO {
	return ClientDTO{
		ID:         c.ID.String(),
		FullName:   c.FullName,
		Email:      c.Email,
		Phone:      c.Phone,
		BirthDate:  c.BirthDate,
		Sex:        c.Sex,
		HeightCm:   c.HeightCm,
		Goal:       c.Goal,
		Allergies:  c.Allergies,
		Notes:      c.Notes,
		IsArchived: c.IsArchived,
		CreatedAt:  c.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:  c.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
