package testutil

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/roach88/crosscheck/internal/store"
)

// ItemsSchema creates the table ItemsAPI serves.
const ItemsSchema = `CREATE TABLE IF NOT EXISTS items (id INTEGER PRIMARY KEY, value TEXT NOT NULL)`

// ItemsAPI is a small REST API over an items table, shaped the way the
// consistency checks expect a real service to behave:
//
//	GET    /items      200, body is the value of the first row
//	POST   /items      201, body is CreatedBody
//	PUT    /items/:id  200, {"id":<id>,"key":<new value>}
//	DELETE /items/:id  204
//
// Every route requires Authorization: Bearer <Token>.
type ItemsAPI struct {
	Store       *store.Store
	Token       string
	CreatedBody string
}

type itemRequest struct {
	Key string `json:"key"`
}

type itemResponse struct {
	ID  int64  `json:"id"`
	Key string `json:"key"`
}

// NewItemsAPI ensures the items table exists and returns the API.
func NewItemsAPI(ctx context.Context, st *store.Store, token string) (*ItemsAPI, error) {
	if _, err := st.Exec(ctx, ItemsSchema); err != nil {
		return nil, err
	}
	return &ItemsAPI{Store: st, Token: token, CreatedBody: "expectedValue"}, nil
}

// Handler returns the echo router for the API.
func (a *ItemsAPI) Handler() http.Handler {
	e := echo.New()
	e.HideBanner = true
	e.Use(a.requireBearer)
	e.GET("/items", a.list)
	e.POST("/items", a.create)
	e.PUT("/items/:id", a.update)
	e.DELETE("/items/:id", a.remove)
	return e
}

func (a *ItemsAPI) requireBearer(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		auth := c.Request().Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != a.Token {
			return c.String(http.StatusUnauthorized, "invalid token")
		}
		return next(c)
	}
}

func (a *ItemsAPI) list(c echo.Context) error {
	v, err := a.Store.QueryValue(c.Request().Context(), store.Selector{Table: "items"}, "value")
	if errors.Is(err, store.ErrNoRows) {
		return c.String(http.StatusOK, "")
	}
	if err != nil {
		return c.String(http.StatusInternalServerError, err.Error())
	}
	return c.String(http.StatusOK, v)
}

func (a *ItemsAPI) create(c echo.Context) error {
	var req itemRequest
	if err := c.Bind(&req); err != nil || req.Key == "" {
		return c.String(http.StatusBadRequest, "key is required")
	}
	if _, err := a.Store.Exec(c.Request().Context(), `INSERT INTO items (value) VALUES (?)`, req.Key); err != nil {
		return c.String(http.StatusInternalServerError, err.Error())
	}
	return c.String(http.StatusCreated, a.CreatedBody)
}

func (a *ItemsAPI) update(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.String(http.StatusBadRequest, "invalid id")
	}
	var req itemRequest
	if err := c.Bind(&req); err != nil || req.Key == "" {
		return c.String(http.StatusBadRequest, "key is required")
	}
	n, err := a.Store.Exec(c.Request().Context(), `UPDATE items SET value = ? WHERE id = ?`, req.Key, id)
	if err != nil {
		return c.String(http.StatusInternalServerError, err.Error())
	}
	if n == 0 {
		return c.String(http.StatusNotFound, "not found")
	}
	return c.JSON(http.StatusOK, itemResponse{ID: id, Key: req.Key})
}

func (a *ItemsAPI) remove(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.String(http.StatusBadRequest, "invalid id")
	}
	n, err := a.Store.Exec(c.Request().Context(), `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return c.String(http.StatusInternalServerError, err.Error())
	}
	if n == 0 {
		return c.String(http.StatusNotFound, "not found")
	}
	return c.NoContent(http.StatusNoContent)
}
