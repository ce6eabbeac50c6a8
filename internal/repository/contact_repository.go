package repository

import (
	"database/sql"

	"github.com/evoflow/backend/internal/model"
)

// ContactRepositoryInterface defines methods used by service
type ContactRepositoryInterface interface {
	GetByPhone(phone string) (*model.Contact, error)
	ListAll() ([]model.Contact, error)
	Create(c *model.Contact) error
}

// ContactRepository is the concrete implementation
type ContactRepository struct {
	DB *sql.DB
}

// GetByPhone fetches a contact by phone number, nil when unknown.
func (r *ContactRepository) GetByPhone(phone string) (*model.Contact, error) {
	query := `SELECT id, phone, name, tag FROM contacts WHERE phone = $1`
	row := r.DB.QueryRow(query, phone)

	var c model.Contact
	if err := row.Scan(&c.ID, &c.Phone, &c.Name, &c.Tag); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // not found
		}
		return nil, err
	}
	return &c, nil
}

// ListAll fetches all contacts (used for recipient expansion)
func (r *ContactRepository) ListAll() ([]model.Contact, error) {
	query := `SELECT id, phone, name, tag FROM contacts`

	rows, err := r.DB.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contacts := []model.Contact{}
	for rows.Next() {
		var c model.Contact
		if err := rows.Scan(&c.ID, &c.Phone, &c.Name, &c.Tag); err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, nil
}

func (r *ContactRepository) Create(c *model.Contact) error {
	query := `INSERT INTO contacts (phone, name, tag) VALUES ($1, $2, $3) RETURNING id`
	return r.DB.QueryRow(query, c.Phone, c.Name, c.Tag).Scan(&c.ID)
}

var _ ContactRepositoryInterface = (*ContactRepository)(nil)
