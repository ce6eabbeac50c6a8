// internal/model/contact.go
package model

type Contact struct {
	ID    int    `db:"id" json:"id"`
	Phone string `db:"phone" json:"phone"`
	Name  string `db:"name" json:"name"`
	Tag   string `db:"tag" json:"tag"`
}
