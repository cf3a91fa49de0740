// Package response defines the JSON envelope returned by every endpoint.
package response

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hnms/hnms/pkg/pagination"
)

// Envelope is the outer shape of all API responses.
type Envelope struct {
	Success    bool             `json:"success"`
	Message    string           `json:"message,omitempty"`
	Data       interface{}      `json:"data,omitempty"`
	User       interface{}      `json:"user,omitempty"`
	Token      string           `json:"token,omitempty"`
	Pagination *pagination.Meta `json:"pagination,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// OK writes a 200 envelope carrying data.
func OK(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, &Envelope{Success: true, Data: data})
}

// Created writes a 201 envelope with a message and data.
func Created(c echo.Context, message string, data interface{}) error {
	return c.JSON(http.StatusCreated, &Envelope{Success: true, Message: message, Data: data})
}

// Message writes a 200 envelope with only a message.
func Message(c echo.Context, message string) error {
	return c.JSON(http.StatusOK, &Envelope{Success: true, Message: message})
}

// Updated writes a 200 envelope with a message and data.
func Updated(c echo.Context, message string, data interface{}) error {
	return c.JSON(http.StatusOK, &Envelope{Success: true, Message: message, Data: data})
}

// List writes a 200 envelope with a page of data and its pagination block.
func List(c echo.Context, data interface{}, p pagination.Params, total int) error {
	return c.JSON(http.StatusOK, &Envelope{
		Success:    true,
		Data:       data,
		Pagination: pagination.NewMeta(p, total),
	})
}

// Fail builds an error envelope.
func Fail(message string) *Envelope {
	return &Envelope{Success: false, Message: message}
}
