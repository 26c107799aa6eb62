package httpx

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-restaurant-orders/internal/catalog"
)

type MenuHandler struct {
	Catalog CatalogService
}

func (h *MenuHandler) Register(r chi.Router) {
	r.Get("/menu/items", h.listItems)
	r.Get("/menu/items/{id}", h.getItem)
	r.Get("/menu/categories", h.listCategories)
	r.Get("/menu/dietary-tags", h.listDietaryTags)
	r.Get("/menu/variation-types", h.listVariationTypes)
}

func (h *MenuHandler) listItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := catalog.Filter{CategoryID: q.Get("category"), DietaryTag: q.Get("tag")}
	if v, err := strconv.ParseBool(q.Get("includeUnavailable")); err == nil {
		f.IncludeUnavailable = v
	}
	items, err := h.Catalog.ListItems(r.Context(), f)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *MenuHandler) getItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.Catalog.GetItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *MenuHandler) listCategories(w http.ResponseWriter, r *http.Request) {
	cs, err := h.Catalog.ListCategories(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

func (h *MenuHandler) listDietaryTags(w http.ResponseWriter, r *http.Request) {
	ts, err := h.Catalog.ListDietaryTags(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ts)
}

func (h *MenuHandler) listVariationTypes(w http.ResponseWriter, r *http.Request) {
	vs, err := h.Catalog.ListVariationTypes(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, vs)
}
