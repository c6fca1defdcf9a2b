package web

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/typicaltools/internal/common"
	"github.com/dmitrijs2005/typicaltools/internal/server/models"
	"github.com/dmitrijs2005/typicaltools/internal/server/policy"
	"github.com/dmitrijs2005/typicaltools/internal/server/services"
)

const msgProductNotFound = "That product no longer exists."

type productForm struct {
	Product     *models.Product
	Name        string
	Price       string
	Description string
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.catalog.List(r.Context())
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "products", page{Title: "Products", Data: products})
}

func (s *Server) showProduct(w http.ResponseWriter, r *http.Request) {
	p, ok := s.loadProduct(w, r)
	if !ok {
		return
	}
	s.render(w, r, http.StatusOK, "product", page{Title: p.Name, Data: p})
}

// loadProduct resolves {id} and answers the request itself when it can't.
func (s *Server) loadProduct(w http.ResponseWriter, r *http.Request) (*models.Product, bool) {
	id, ok := pathID(r)
	if !ok {
		s.redirectWithFlash(w, r, defaultRedirect, msgProductNotFound)
		return nil, false
	}

	p, err := s.catalog.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.redirectWithFlash(w, r, defaultRedirect, msgProductNotFound)
		} else {
			s.serverError(w, r, err)
		}
		return nil, false
	}
	return p, true
}

func (s *Server) newProductForm(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r, policy.ManageCatalog) {
		return
	}
	s.render(w, r, http.StatusOK, "product_new", page{Title: "Add product", Data: productForm{}})
}

func (s *Server) createProduct(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r, policy.ManageCatalog) {
		return
	}

	form := productForm{
		Name:        r.PostFormValue("name"),
		Price:       r.PostFormValue("price"),
		Description: r.PostFormValue("description"),
	}

	price, err := services.ParsePrice(form.Price)
	if err == nil {
		_, err = s.catalog.Create(r.Context(), actorFrom(r.Context()), services.ProductInput{
			Name:        form.Name,
			Price:       price,
			Description: form.Description,
		})
	}

	switch {
	case err == nil:
		s.redirectWithFlash(w, r, defaultRedirect, "Product added.")
	case errors.Is(err, common.ErrValidation):
		s.render(w, r, http.StatusUnprocessableEntity, "product_new",
			page{Title: "Add product", Error: validationMessage(err), Data: form})
	case errors.Is(err, common.ErrForbidden):
		s.forbidden(w, r)
	default:
		s.serverError(w, r, err)
	}
}

func (s *Server) editProductForm(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r, policy.ManageCatalog) {
		return
	}
	p, ok := s.loadProduct(w, r)
	if !ok {
		return
	}
	s.render(w, r, http.StatusOK, "product_edit",
		page{Title: "Edit price", Data: productForm{Product: p, Price: p.Price.StringFixed(2)}})
}

// updateProductPrice ignores every submitted field except price.
func (s *Server) updateProductPrice(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r, policy.ManageCatalog) {
		return
	}
	p, ok := s.loadProduct(w, r)
	if !ok {
		return
	}

	form := productForm{Product: p, Price: r.PostFormValue("price")}

	price, err := services.ParsePrice(form.Price)
	if err == nil {
		_, err = s.catalog.UpdatePrice(r.Context(), actorFrom(r.Context()), p.ID, price)
	}

	switch {
	case err == nil:
		s.redirectWithFlash(w, r, defaultRedirect, fmt.Sprintf("Price of %s updated.", p.Name))
	case errors.Is(err, common.ErrValidation):
		s.render(w, r, http.StatusUnprocessableEntity, "product_edit",
			page{Title: "Edit price", Error: validationMessage(err), Data: form})
	case errors.Is(err, common.ErrorNotFound):
		s.redirectWithFlash(w, r, defaultRedirect, msgProductNotFound)
	case errors.Is(err, common.ErrForbidden):
		s.forbidden(w, r)
	default:
		s.serverError(w, r, err)
	}
}

func (s *Server) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r, policy.ManageCatalog) {
		return
	}
	id, ok := pathID(r)
	if !ok {
		s.redirectWithFlash(w, r, defaultRedirect, msgProductNotFound)
		return
	}

	err := s.catalog.Delete(r.Context(), actorFrom(r.Context()), id)
	switch {
	case err == nil:
		s.redirectWithFlash(w, r, defaultRedirect, "Product deleted.")
	case errors.Is(err, common.ErrorNotFound):
		s.redirectWithFlash(w, r, defaultRedirect, msgProductNotFound)
	case errors.Is(err, common.ErrForbidden):
		s.forbidden(w, r)
	default:
		s.serverError(w, r, err)
	}
}
