package catalog

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"tastymeals/internal/httpapi"
	"tastymeals/internal/logger"
)

// Handler exposes the catalog over HTTP. Admin routes mutate, customer
// routes read through the cache.
type Handler struct {
	service *Service
	logger  *logger.Logger
}

// NewHandler creates a catalog handler.
func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{service: service, logger: log}
}

// AdminRoutes mounts the cafeadmin catalog endpoints.
func (h *Handler) AdminRoutes(r chi.Router) {
	r.Route("/categories", func(r chi.Router) {
		r.Post("/", h.CreateCategory)
		r.Get("/", h.ListCategories)
		r.Route("/{categoryID}", func(r chi.Router) {
			r.Get("/", h.GetCategory)
			r.Patch("/", h.UpdateCategory)
			r.Delete("/", h.DeleteCategory)
			r.Post("/items", h.CreateFoodItem)
			r.Get("/items", h.ListCategoryItems)
		})
	})
	r.Route("/items", func(r chi.Router) {
		r.Get("/", h.ListFoodItems)
		r.Route("/{itemID}", func(r chi.Router) {
			r.Get("/", h.GetFoodItem)
			r.Patch("/", h.UpdateFoodItem)
			r.Delete("/", h.DeleteFoodItem)
		})
	})
	r.Route("/offers", func(r chi.Router) {
		r.Post("/", h.CreateOffer)
		r.Get("/", h.ListOffers)
		r.Route("/{offerID}", func(r chi.Router) {
			r.Get("/", h.GetOffer)
			r.Patch("/", h.UpdateOffer)
			r.Delete("/", h.DeleteOffer)
		})
	})
	r.Route("/tables", func(r chi.Router) {
		r.Post("/", h.CreateTable)
		r.Get("/", h.ListTables)
		r.Route("/{tableID}", func(r chi.Router) {
			r.Get("/", h.GetTable)
			r.Get("/qrcode", h.TableQR)
			r.Patch("/", h.UpdateTable)
			r.Delete("/", h.DeleteTable)
		})
	})
}

// CustomerRoutes mounts the cached menu reads.
func (h *Handler) CustomerRoutes(r chi.Router) {
	r.Get("/categories", h.ListCategoriesCached)
	r.Get("/categories/{categoryID}/items", h.MenuForCategory)
	r.Get("/menu", h.Menu)
}

func listQuery(r *http.Request) ListQuery {
	return ListQuery{
		Search:   r.URL.Query().Get("search"),
		Ordering: r.URL.Query().Get("ordering"),
	}
}

func pathID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	return id, err == nil
}

type categoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid JSON format")
		return
	}
	if req.Name == "" {
		httpapi.WriteError(w, http.StatusBadRequest, "name is required")
		return
	}

	category, err := h.service.CreateCategory(r.Context(), req.Name, req.Description)
	if err != nil {
		httpapi.WriteDomainError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusCreated, category)
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context(), listQuery(r))
	if err != nil {
		httpapi.WriteDomainError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, categories)
}

func (h *Handler) ListCategoriesCached(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategoriesCached(r.Context(), listQuery(r))
	if err != nil {
		httpapi.WriteDomainError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, categories)
}

func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "categoryID")
	if !ok {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid category id")
		return
	}
	category, err := h.service.GetCategory(r.Context(), id)
	if err != nil {
		httpapi.WriteDomainError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, category)
}

func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "categoryID")
	if !ok {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid category id")
		return
	}
	var req categoryRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid JSON format")
		return
	}
	category, err := h.service.UpdateCategory(r.Context(), id, req.Name, req.Description)
	if err != nil {
		httpapi.WriteDomainError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, category)
}

func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "categoryID")
	if !ok {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid category id")
		return
	}
	if err := h.service.DeleteCategory(r.Context(), id); err != nil {
		httpapi.WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type foodItemRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Price       *string `json:"price"`
	IsAvailable *bool   `json:"is_available"`
	CategoryID  *string `json:"category_id"`
}

func (h *Handler) CreateFoodItem(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := pathID(r, "categoryID")
	if !ok {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid category id")
		return
	}
	var req foodItemRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid JSON format")
		return
	}
	if req.Name == nil || *req.Name == "" || req.Price == nil {
		httpapi.WriteError(w, http.StatusBadRequest, "name and price are required")
		return
	}

	in := CreateFoodItemInput{Name: *req.Name, Price: *req.Price, IsAvailable: req.IsAvailable}
	if req.Description != nil {
		in.Description = *req.Description
	}
	item, err := h.service.CreateFoodItem(r.Context(), categoryID, in)
	if err != nil {
		httpapi.WriteDomainError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusCreated, item)
}

func (h *Handler) ListCategoryItems(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := pathID(r, "categoryID")
	if !ok {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid category id")
		return
	}
	items, err := h.service.ListFoodItems(r.Context(), &categoryID, listQuery(r))
	if err != nil {
		httpapi.WriteDomainError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, items)
}

func (h *Handler) ListFoodItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListFoodItems(r.Context(), nil, listQuery(r))
	if err != nil {
		httpapi.WriteDomainError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, items)
}

func (h *Handler) GetFoodItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "itemID")
	if !ok {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	item, err := h.service.GetFoodItem(r.Context(), id)
	if err != nil {
		httpapi.WriteDomainError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, item)
}

func (h *Handler) UpdateFoodItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "itemID")
	if !ok {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	var req foodItemRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid JSON format")
		return
	}

	in := UpdateFoodItemInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		IsAvailable: req.IsAvailable,
	}
	if req.CategoryID != nil {
		categoryID, err := uuid.Parse(*req.CategoryID)
		if err != nil {
			httpapi.WriteError(w, http.StatusBadRequest, "invalid category id")
			return
		}
		in.CategoryID = &categoryID
	}
	item, err := h.service.UpdateFoodItem(r.Context(), id, in)
	if err != nil {
		httpapi.WriteDomainError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, item)
}

func (h *Handler) DeleteFoodItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "itemID")
	if !ok {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	if err := h.service.DeleteFoodItem(r.Context(), id); err != nil {
		httpapi.WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Menu(w http.ResponseWriter, r *http.Request) {
	menu, err := h.service.Menu(r.Context(), nil, listQuery(r))
	if err != nil {
		httpapi.WriteDomainError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, menu)
}

func (h *Handler) MenuForCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := pathID(r, "categoryID")
	if !ok {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid category id")
		return
	}
	menu, err := h.service.Menu(r.Context(), &categoryID, listQuery(r))
	if err != nil {
		httpapi.WriteDomainError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, menu)
}

type offerRequest struct {
	FoodItemID         *string    `json:"fooditem_id"`
	Name               *string    `json:"name"`
	DiscountPercentage *string    `json:"discount_percentage"`
	StartDate          *time.Time `json:"start_date"`
	EndDate            *time.Time `json:"end_date"`
	Description        *string    `json:"description"`
}

func (h *Handler) CreateOffer(w http.ResponseWriter, r *http.Request) {
	var req offerRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid JSON format")
		return
	}
	if req.FoodItemID == nil || req.Name == nil || req.DiscountPercentage == nil ||
		req.StartDate == nil || req.EndDate == nil {
		httpapi.WriteError(w, http.StatusBadRequest, "fooditem_id, name, discount_percentage, start_date and end_date are required")
		return
	}
	itemID, err := uuid.Parse(*req.FoodItemID)
	if err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid fooditem id")
		return
	}

	in := CreateOfferInput{
		FoodItemID:         itemID,
		Name:               *req.Name,
		DiscountPercentage: *req.DiscountPercentage,
		StartDate:          *req.StartDate,
		EndDate:            *req.EndDate,
	}
	if req.Description != nil {
		in.Description = *req.Description
	}
	offer, err := h.service.CreateOffer(r.Context(), in)
	if err != nil {
		httpapi.WriteDomainError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusCreated, offer)
}

func (h *Handler) ListOffers(w http.ResponseWriter, r *http.Request) {
	offers, err := h.service.ListOffers(r.Context())
	if err != nil {
		httpapi.WriteDomainError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, offers)
}

func (h *Handler) GetOffer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "offerID")
	if !ok {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid offer id")
		return
	}
	offer, err := h.service.GetOffer(r.Context(), id)
	if err != nil {
		httpapi.WriteDomainError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, offer)
}

func (h *Handler) UpdateOffer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "offerID")
	if !ok {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid offer id")
		return
	}
	var req offerRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid JSON format")
		return
	}
	offer, err := h.service.UpdateOffer(r.Context(), id, UpdateOfferInput{
		Name:               req.Name,
		DiscountPercentage: req.DiscountPercentage,
		StartDate:          req.StartDate,
		EndDate:            req.EndDate,
		Description:        req.Description,
	})
	if err != nil {
		httpapi.WriteDomainError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, offer)
}

func (h *Handler) DeleteOffer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "offerID")
	if !ok {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid offer id")
		return
	}
	if err := h.service.DeleteOffer(r.Context(), id); err != nil {
		httpapi.WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type tableRequest struct {
	TableNumber int `json:"table_number"`
}

func (h *Handler) CreateTable(w http.ResponseWriter, r *http.Request) {
	var req tableRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid JSON format")
		return
	}
	table, err := h.service.CreateTable(r.Context(), req.TableNumber)
	if err != nil {
		httpapi.WriteDomainError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusCreated, table)
}

func (h *Handler) ListTables(w http.ResponseWriter, r *http.Request) {
	tables, err := h.service.ListTables(r.Context())
	if err != nil {
		httpapi.WriteDomainError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, tables)
}

func (h *Handler) GetTable(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "tableID")
	if !ok {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid table id")
		return
	}
	table, err := h.service.GetTable(r.Context(), id)
	if err != nil {
		httpapi.WriteDomainError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, table)
}

// TableQR serves the table's QR code as a PNG image.
func (h *Handler) TableQR(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "tableID")
	if !ok {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid table id")
		return
	}
	png, err := h.service.TableQR(r.Context(), id)
	if err != nil {
		httpapi.WriteDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

func (h *Handler) UpdateTable(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "tableID")
	if !ok {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid table id")
		return
	}
	var req tableRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid JSON format")
		return
	}
	table, err := h.service.UpdateTable(r.Context(), id, req.TableNumber)
	if err != nil {
		httpapi.WriteDomainError(w, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, table)
}

func (h *Handler) DeleteTable(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "tableID")
	if !ok {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid table id")
		return
	}
	if err := h.service.DeleteTable(r.Context(), id); err != nil {
		httpapi.WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
