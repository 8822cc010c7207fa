package address

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/creamline/milkrun/basket"
	"github.com/creamline/milkrun/billing"
	"github.com/creamline/milkrun/geo"
	resp "github.com/creamline/milkrun/response"
	"github.com/creamline/milkrun/spec"
	"github.com/creamline/milkrun/wallet"

	"github.com/go-chi/chi"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ServiceOptions contains the configuration for Service router
type ServiceOptions struct {
	AddressManager *Manager
	Wallet         wallet.Notifier
	Recommender    *basket.Recommender
	Resolver       geo.Resolver
	Logger         *zap.Logger
}

// Service is the subscription address API router
type Service struct {
	ServiceOptions
}

// NewService will create an instance of the address API router
func NewService(option ServiceOptions) (*Service, error) {
	if option.AddressManager == nil {
		return nil, fmt.Errorf("nil AddressManager is invalid")
	}
	if option.Wallet == nil {
		return nil, fmt.Errorf("nil Wallet is invalid")
	}
	if option.Recommender == nil {
		return nil, fmt.Errorf("nil Recommender is invalid")
	}
	if option.Resolver == nil {
		return nil, fmt.Errorf("nil Resolver is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	return &Service{
		ServiceOptions: option,
	}, nil
}

// writeDomainError translates the store's typed failures into HTTP envelopes
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		resp.WriteError(w, r, resp.ErrNotFound().AddMessages(err.Error()))
	case errors.Is(err, ErrValidation):
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages(err.Error()))
	case errors.Is(err, ErrInvalidTransition):
		resp.WriteError(w, r, resp.ErrConflict().AddMessages(err.Error()))
	case errors.Is(err, ErrStaleVersion):
		resp.WriteError(w, r, resp.ErrConflict().AddMessages(err.Error()))
	default:
		resp.WriteError(w, r, resp.ErrUnexpected())
	}
}

// requestVersion reads the optional optimistic version from the query.
// Absent means "no version check"
func requestVersion(r *http.Request) (int64, error) {
	raw := r.URL.Query().Get("version")
	if raw == "" {
		return VersionAny, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

// NewAddressRequest contains the request from client to register a new
// delivery address. City may be blank if the pincode is resolvable
type NewAddressRequest struct {
	Nickname    string `json:"nickname" validate:"required"`
	HouseNumber string `json:"houseNumber" validate:"required"`
	Street      string `json:"street"`
	City        string `json:"city"`
	Pincode     string `json:"pincode" validate:"required"`
	TierID      string `json:"tierId"`
}

func (s *Service) createAddress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req NewAddressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.WriteError(w, r, resp.ErrInvalidJson())
		return
	}
	if err := validate.Struct(&req); err != nil {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages(err.Error()))
		return
	}

	logger := s.Logger.With(zap.String("Pincode", req.Pincode))

	location := geo.Location{
		Line1:   req.Street,
		City:    req.City,
		Pincode: req.Pincode,
	}
	resolved, err := s.Resolver.Resolve(ctx, req.Pincode)
	if err != nil {
		logger.Error("Geocoding collaborator returned error",
			zap.Error(err),
		)
		// fail through: the customer-provided city may still suffice
	}
	if resolved != nil {
		if len(location.City) == 0 {
			location.City = resolved.City
		}
		location.Lat = resolved.Lat
		location.Lng = resolved.Lng
	}

	addr, err := s.AddressManager.Create(ctx, CreateOption{
		Nickname:    req.Nickname,
		HouseNumber: req.HouseNumber,
		TierID:      req.TierID,
		Location:    location,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	resp.WriteResponse(w, r, addr)
}

func (s *Service) listAddresses(w http.ResponseWriter, r *http.Request) {
	resp.WriteResponse(w, r, s.AddressManager.List(r.Context()))
}

func (s *Service) getAggregate(w http.ResponseWriter, r *http.Request) {
	resp.WriteResponse(w, r, s.AddressManager.Aggregate(r.Context()))
}

func (s *Service) getAddress(w http.ResponseWriter, r *http.Request) {
	addr, err := s.AddressManager.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	resp.WriteResponse(w, r, addr)
}

// mutate runs one transition through the store with the optional
// optimistic version from the request
func (s *Service) mutate(w http.ResponseWriter, r *http.Request, fn MutateFunc) {
	version, err := requestVersion(r)
	if err != nil {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages("Invalid version param"))
		return
	}
	addr, err := s.AddressManager.Mutate(r.Context(), chi.URLParam(r, "id"), version, fn)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	resp.WriteResponse(w, r, addr)
}

func (s *Service) activatePlan(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(addr *Address) error {
		return addr.ActivatePlan()
	})
}

func (s *Service) reactivate(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(addr *Address) error {
		return addr.Reactivate()
	})
}

func (s *Service) hold(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(addr *Address) error {
		return addr.Hold()
	})
}

func (s *Service) resume(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(addr *Address) error {
		return addr.Resume()
	})
}

// VacationRequest contains the inclusive skip window
type VacationRequest struct {
	From spec.Date `json:"from"`
	To   spec.Date `json:"to"`
}

func (s *Service) setVacation(w http.ResponseWriter, r *http.Request) {
	var req VacationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.WriteError(w, r, resp.ErrInvalidJson())
		return
	}
	today := spec.Today()
	s.mutate(w, r, func(addr *Address) error {
		return addr.SetVacation(billing.VacationWindow{From: req.From, To: req.To}, today)
	})
}

func (s *Service) cancelVacation(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(addr *Address) error {
		return addr.CancelVacation()
	})
}

// EndRequest carries the optional reason for ending the subscription
type EndRequest struct {
	Reason string `json:"reason"`
}

func (s *Service) endSubscription(w http.ResponseWriter, r *http.Request) {
	addressID := chi.URLParam(r, "id")
	logger := s.Logger.With(zap.String("AddressID", addressID))

	var req EndRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			resp.WriteError(w, r, resp.ErrInvalidJson())
			return
		}
	}

	version, err := requestVersion(r)
	if err != nil {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages("Invalid version param"))
		return
	}

	var creditOwed int64
	var daysRefunded int
	addr, err := s.AddressManager.Mutate(r.Context(), addressID, version, func(addr *Address) error {
		tier, ok := s.AddressManager.Tiers.GetDefinedTierByID(addr.TierID)
		if !ok {
			return fmt.Errorf("Address references undefined tier %s", addr.TierID)
		}
		daysRefunded = addr.PlanDaysLeft
		owed, endErr := addr.End(req.Reason, tier)
		if endErr != nil {
			return endErr
		}
		creditOwed = owed
		return nil
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	go func(notice wallet.CreditNotice) {
		if err := s.Wallet.NotifyCredit(context.Background(), notice); err != nil {
			logger.Error("Unable to notify wallet of credit owed",
				zap.Error(err),
				zap.Int64("Amount", notice.Amount),
			)
			// fail through: as long as store state is consistent, manual mediation is possible
		}
	}(wallet.CreditNotice{
		AddressID:    addressID,
		Amount:       creditOwed,
		DaysRefunded: daysRefunded,
		Reason:       addr.EndReason,
	})

	resp.WriteResponse(w, r, struct {
		Address    *Address `json:"address"`
		CreditOwed int64    `json:"creditOwed"`
	}{
		Address:    addr,
		CreditOwed: creditOwed,
	})
}

// NewProductRequest contains the request from client to subscribe a
// product at the address
type NewProductRequest struct {
	Name      string         `json:"name" validate:"required"`
	Variant   string         `json:"variant"`
	UnitPrice int64          `json:"unitPrice" validate:"min=0"`
	Quantity  int64          `json:"quantity" validate:"min=1"`
	Frequency spec.Frequency `json:"frequency" validate:"required"`
}

func (s *Service) addProduct(w http.ResponseWriter, r *http.Request) {
	var req NewProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.WriteError(w, r, resp.ErrInvalidJson())
		return
	}
	if err := validate.Struct(&req); err != nil {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages(err.Error()))
		return
	}

	s.mutate(w, r, func(addr *Address) error {
		return addr.AddProduct(Product{
			ID:        uuid.New().String(),
			Name:      req.Name,
			Variant:   req.Variant,
			UnitPrice: req.UnitPrice,
			Quantity:  req.Quantity,
			Frequency: req.Frequency,
		})
	})
}

func (s *Service) removeProduct(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")
	s.mutate(w, r, func(addr *Address) error {
		return addr.RemoveProduct(productID)
	})
}

func (s *Service) togglePause(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")
	s.mutate(w, r, func(addr *Address) error {
		return addr.TogglePause(productID)
	})
}

func (s *Service) getSuggestions(w http.ResponseWriter, r *http.Request) {
	categoryID := r.URL.Query().Get("category")
	if categoryID == "" {
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages("Missing category param"))
		return
	}

	addr, err := s.AddressManager.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	alreadyAdded := make([]string, 0, len(addr.Products))
	for _, p := range addr.Products {
		alreadyAdded = append(alreadyAdded, p.ID)
	}

	resp.WriteResponse(w, r, s.Recommender.SuggestionsFor(categoryID, alreadyAdded))
}

// Router will return the routes under the address API
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()

	r.Post("/", s.createAddress)
	r.Get("/", s.listAddresses)
	r.Get("/aggregate", s.getAggregate)
	r.Get("/{id}", s.getAddress)
	r.Post("/{id}/plan", s.activatePlan)
	r.Post("/{id}/reactivate", s.reactivate)
	r.Post("/{id}/hold", s.hold)
	r.Post("/{id}/resume", s.resume)
	r.Post("/{id}/vacation", s.setVacation)
	r.Delete("/{id}/vacation", s.cancelVacation)
	r.Post("/{id}/end", s.endSubscription)
	r.Post("/{id}/products", s.addProduct)
	r.Delete("/{id}/products/{productId}", s.removeProduct)
	r.Post("/{id}/products/{productId}/pause", s.togglePause)
	r.Get("/{id}/suggestions", s.getSuggestions)

	return r
}
