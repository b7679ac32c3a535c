// internal/models/address.go
package models

import "time"

type Address struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	FullName  string    `json:"full_name" validate:"required,max=100"`
	Phone     string    `json:"phone" validate:"required,phone"`
	Line      string    `json:"address" validate:"required,max=255"`
	City      string    `json:"city" validate:"required,max=100"`
	State     string    `json:"state" validate:"max=100"`
	ZipCode   string    `json:"zip_code" validate:"required,max=20"`
	Country   string    `json:"country" validate:"required,max=100"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ShippingInfo is the address snapshot frozen into an order.
type ShippingInfo struct {
	FullName string `json:"full_name" validate:"required"`
	Phone    string `json:"phone" validate:"required"`
	Line     string `json:"address" validate:"required"`
	City     string `json:"city" validate:"required"`
	State    string `json:"state"`
	ZipCode  string `json:"zip_code" validate:"required"`
	Country  string `json:"country" validate:"required"`
}

func (a Address) ShippingInfo() ShippingInfo {
	return ShippingInfo{
		FullName: a.FullName,
		Phone:    a.Phone,
		Line:     a.Line,
		City:     a.City,
		State:    a.State,
		ZipCode:  a.ZipCode,
		Country:  a.Country,
	}
}
