package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/nammaooru/offers-api/internal/model"
	"github.com/nammaooru/offers-api/internal/repository"
)

// ProductHandler serves the product catalog: public browsing plus
// owner-scoped CRUD for store accounts.
type ProductHandler struct {
	Products *repository.ProductRepo
	Stores   *repository.StoreRepo
}

func NewProductHandler(p *repository.ProductRepo, st *repository.StoreRepo) *ProductHandler {
	if p == nil || st == nil {
		panic("nil repository passed to NewProductHandler")
	}
	return &ProductHandler{Products: p, Stores: st}
}

type productReq struct {
	Name        string  `json:"name"`
	Brand       string  `json:"brand"`
	Category    string  `json:"category"`
	Subcategory string  `json:"subcategory"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Discount    float64 `json:"discount"`
	Stock       int64   `json:"stock"`
	SKU         *string `json:"sku"`
	IsPublished bool    `json:"isPublished"`
}

type productResp struct {
	ID          uint64    `json:"id"`
	StoreID     uint64    `json:"storeId"`
	Name        string    `json:"name"`
	Brand       string    `json:"brand,omitempty"`
	Category    string    `json:"category,omitempty"`
	Subcategory string    `json:"subcategory,omitempty"`
	Description string    `json:"description,omitempty"`
	Price       float64   `json:"price"`
	Discount    float64   `json:"discount"`
	FinalPrice  float64   `json:"finalPrice"`
	Stock       int64     `json:"stock"`
	SKU         *string   `json:"sku,omitempty"`
	IsPublished bool      `json:"isPublished"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toProductResp(p model.Product) productResp {
	return productResp{
		ID: p.ID, StoreID: p.StoreID, Name: p.Name, Brand: p.Brand,
		Category: p.Category, Subcategory: p.Subcategory, Description: p.Description,
		Price: p.Price, Discount: p.Discount, FinalPrice: p.FinalPrice,
		Stock: p.Stock, SKU: p.SKU, IsPublished: p.IsPublished, CreatedAt: p.CreatedAt,
	}
}

func (req *productReq) validate() string {
	req.Name = strings.TrimSpace(req.Name)
	switch {
	case req.Name == "":
		return "name is required"
	case req.Price < 0:
		return "price must not be negative"
	case req.Discount < 0 || req.Discount > 100:
		return "discount must be between 0 and 100"
	case req.Stock < 0:
		return "stock must not be negative"
	}
	return ""
}

// callerStore resolves the store owned by the authenticated user.
func (h *ProductHandler) callerStore(ctx context.Context, c echo.Context) (model.Store, int, string) {
	userID, err := getUserID(c)
	if err != nil {
		return model.Store{}, http.StatusUnauthorized, "unauthorized"
	}
	s, err := h.Stores.GetByOwner(ctx, userID)
	if err != nil {
		if err == repository.ErrStoreNotFound {
			return model.Store{}, http.StatusNotFound, "store not found"
		}
		return model.Store{}, http.StatusInternalServerError, "query failed"
	}
	return s, 0, ""
}

// ListPublic handles GET /product/public with filter and pagination
// query parameters.
func (h *ProductHandler) ListPublic(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	minPrice, _ := strconv.ParseFloat(c.QueryParam("minPrice"), 64)
	maxPrice, _ := strconv.ParseFloat(c.QueryParam("maxPrice"), 64)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	products, err := h.Products.ListPublic(ctx, repository.PublicFilter{
		Search:   strings.TrimSpace(c.QueryParam("search")),
		Category: strings.TrimSpace(c.QueryParam("category")),
		Brand:    strings.TrimSpace(c.QueryParam("brand")),
		MinPrice: minPrice,
		MaxPrice: maxPrice,
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]productResp, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResp(p))
	}
	return c.JSON(http.StatusOK, echo.Map{"products": out})
}

// GetPublic handles GET /product/public/:id. Unpublished products are
// invisible here.
func (h *ProductHandler) GetPublic(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid product id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Products.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrProductNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !p.IsPublished {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
	}
	return c.JSON(http.StatusOK, toProductResp(p))
}

// ListMine handles GET /product/store, drafts included.
func (h *ProductHandler) ListMine(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, code, msg := h.callerStore(ctx, c)
	if code != 0 {
		return c.JSON(code, echo.Map{"error": msg})
	}
	products, err := h.Products.ListByStore(ctx, s.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]productResp, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResp(p))
	}
	return c.JSON(http.StatusOK, echo.Map{"products": out})
}

// Create handles POST /product/.
func (h *ProductHandler) Create(c echo.Context) error {
	var req productReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, code, msg := h.callerStore(ctx, c)
	if code != 0 {
		return c.JSON(code, echo.Map{"error": msg})
	}

	p := model.Product{
		StoreID:     s.ID,
		CreatedBy:   &s.OwnerID,
		Name:        req.Name,
		Brand:       req.Brand,
		Category:    req.Category,
		Subcategory: req.Subcategory,
		Description: req.Description,
		Price:       req.Price,
		Discount:    req.Discount,
		Stock:       req.Stock,
		SKU:         req.SKU,
		IsPublished: req.IsPublished,
	}
	if _, err := h.Products.Create(ctx, &p); err != nil {
		if err == repository.ErrSKUTaken {
			return c.JSON(http.StatusConflict, echo.Map{"error": "sku already in use"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create product failed"})
	}
	return c.JSON(http.StatusCreated, toProductResp(p))
}

// Update handles PUT /product/:id for the owning store.
func (h *ProductHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid product id"})
	}
	var req productReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, code, msg := h.callerStore(ctx, c)
	if code != 0 {
		return c.JSON(code, echo.Map{"error": msg})
	}
	p, err := h.Products.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrProductNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if p.StoreID != s.ID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	p.Name = req.Name
	p.Brand = req.Brand
	p.Category = req.Category
	p.Subcategory = req.Subcategory
	p.Description = req.Description
	p.Price = req.Price
	p.Discount = req.Discount
	p.Stock = req.Stock
	p.SKU = req.SKU
	p.IsPublished = req.IsPublished

	if err := h.Products.Update(ctx, &p); err != nil {
		if err == repository.ErrSKUTaken {
			return c.JSON(http.StatusConflict, echo.Map{"error": "sku already in use"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update product failed"})
	}
	return c.JSON(http.StatusOK, toProductResp(p))
}

// Delete handles DELETE /product/:id for the owning store.
func (h *ProductHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid product id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, code, msg := h.callerStore(ctx, c)
	if code != 0 {
		return c.JSON(code, echo.Map{"error": msg})
	}
	p, err := h.Products.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrProductNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if p.StoreID != s.ID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	if err := h.Products.Delete(ctx, id); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete product failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "product deleted"})
}
