package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/nammaooru/offers-api/internal/model"
	"github.com/nammaooru/offers-api/internal/repository"
)

// StoreHandler serves store profiles and the admin user-management
// endpoints that live under /store.
type StoreHandler struct {
	Stores *repository.StoreRepo
	Users  *repository.UserRepo
}

func NewStoreHandler(s *repository.StoreRepo, u *repository.UserRepo) *StoreHandler {
	if s == nil || u == nil {
		panic("nil repository passed to NewStoreHandler")
	}
	return &StoreHandler{Stores: s, Users: u}
}

type storeReq struct {
	Name        string  `json:"storeName"`
	LogoURL     string  `json:"storeLogo"`
	Website     *string `json:"storeWebsite"`
	Address     string  `json:"storeAddress"`
	City        string  `json:"storeCity"`
	Description string  `json:"storeDescription"`
	Instagram   *string `json:"instagram"`
	YouTube     *string `json:"youtube"`
	Twitter     *string `json:"twitter"`
	Facebook    *string `json:"facebook"`
}

type storeResp struct {
	ID          uint64    `json:"id"`
	OwnerID     uint64    `json:"ownerId"`
	Name        string    `json:"storeName"`
	LogoURL     string    `json:"storeLogo,omitempty"`
	Website     *string   `json:"storeWebsite,omitempty"`
	Address     string    `json:"storeAddress"`
	City        string    `json:"storeCity"`
	Description string    `json:"storeDescription,omitempty"`
	Instagram   *string   `json:"instagram,omitempty"`
	YouTube     *string   `json:"youtube,omitempty"`
	Twitter     *string   `json:"twitter,omitempty"`
	Facebook    *string   `json:"facebook,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toStoreResp(s model.Store) storeResp {
	return storeResp{
		ID: s.ID, OwnerID: s.OwnerID, Name: s.Name, LogoURL: s.LogoURL,
		Website: s.Website, Address: s.Address, City: s.City,
		Description: s.Description, Instagram: s.Instagram, YouTube: s.YouTube,
		Twitter: s.Twitter, Facebook: s.Facebook, CreatedAt: s.CreatedAt,
	}
}

func (req *storeReq) validate() string {
	req.Name = strings.TrimSpace(req.Name)
	req.Address = strings.TrimSpace(req.Address)
	req.City = strings.TrimSpace(req.City)
	switch {
	case req.Name == "" || req.Address == "" || req.City == "":
		return "storeName, storeAddress and storeCity are required"
	case len(req.Name) > 50:
		return "storeName must be at most 50 characters"
	case len(req.Description) > 500:
		return "storeDescription must be at most 500 characters"
	}
	return ""
}

func (req *storeReq) toModel(ownerID uint64) model.Store {
	return model.Store{
		OwnerID: ownerID, Name: req.Name, LogoURL: req.LogoURL, Website: req.Website,
		Address: req.Address, City: req.City, Description: req.Description,
		Instagram: req.Instagram, YouTube: req.YouTube, Twitter: req.Twitter,
		Facebook: req.Facebook,
	}
}

// AddStore handles POST /store/add. One store per owner; the unique
// index on stores.owner_id rejects a second.
func (h *StoreHandler) AddStore(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req storeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s := req.toModel(userID)
	if _, err := h.Stores.Create(ctx, &s); err != nil {
		if err == repository.ErrStoreExists {
			return c.JSON(http.StatusConflict, echo.Map{"error": "store already exists for this account"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create store failed"})
	}
	if err := h.Users.SetStore(ctx, userID, s.ID); err != nil {
		c.Logger().Errorf("link store %d to user %d failed: %v", s.ID, userID, err)
	}
	return c.JSON(http.StatusCreated, toStoreResp(s))
}

// UpdateStore handles PUT /store/update for the caller's own store.
func (h *StoreHandler) UpdateStore(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req storeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s := req.toModel(userID)
	if err := h.Stores.UpdateByOwner(ctx, &s); err != nil {
		if err == repository.ErrStoreNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "store not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update store failed"})
	}
	updated, err := h.Stores.GetByOwner(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toStoreResp(updated))
}

// MyStore handles GET /store/my.
func (h *StoreHandler) MyStore(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Stores.GetByOwner(ctx, userID)
	if err != nil {
		if err == repository.ErrStoreNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "store not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toStoreResp(s))
}

// ListStores handles GET /store/all, the public directory.
func (h *StoreHandler) ListStores(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	stores, err := h.Stores.ListAll(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"stores": stores})
}

// GetStore handles GET /store/:id, the public detail page.
func (h *StoreHandler) GetStore(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid store id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Stores.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrStoreNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "store not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toStoreResp(s))
}

// UsersByRole handles GET /store/users/:role for admins.
func (h *StoreHandler) UsersByRole(c echo.Context) error {
	role := strings.ToLower(strings.TrimSpace(c.Param("role")))
	if role != model.RoleAdmin && role != model.RoleUser && role != model.RoleStore {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	users, err := h.Users.ListByRole(ctx, role)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]userPart, 0, len(users))
	for _, u := range users {
		out = append(out, toUserPart(u))
	}
	return c.JSON(http.StatusOK, echo.Map{"users": out})
}

// UpdateUserRole handles PUT /store/:userId/role for admins.
func (h *StoreHandler) UpdateUserRole(c echo.Context) error {
	userID, err := pathID(c, "userId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	var req struct {
		Role string `json:"role"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	role := strings.ToLower(strings.TrimSpace(req.Role))
	if role != model.RoleAdmin && role != model.RoleUser && role != model.RoleStore {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.UpdateRole(ctx, userID, role); err != nil {
		if err == repository.ErrUserNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"id": userID, "role": role})
}
