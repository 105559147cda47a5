package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"levelup-loyalty/internal/model"
	"levelup-loyalty/internal/repository"
	"levelup-loyalty/internal/watch"
)

type cartService struct {
	*views
}

// NewCartService creates the cart aggregator.
func NewCartService(d Deps) CartService {
	return &cartService{views: newViews(d, "cart")}
}

func (s *cartService) AddItem(ctx context.Context, username string, req *model.AddCartItemRequest) (*model.CartLine, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, model.ErrInvalidUsername
	}
	if req.Quantity < 0 {
		return nil, model.ErrInvalidQuantity
	}

	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}

	var price float64
	if req.PriceValue != nil {
		price = *req.PriceValue
	} else {
		parsed, ok := parsePrice(req.ProductPrice)
		if !ok {
			s.logger.Warn().Str("product_id", req.ProductID).Str("price", req.ProductPrice).Msg("unparsable product price")
			return nil, model.ErrInvalidPrice
		}
		price = parsed
	}

	line, err := s.repos.Carts.Upsert(ctx, &model.CartLine{
		ProductID:    req.ProductID,
		ProductName:  req.ProductName,
		ProductPrice: req.ProductPrice,
		PriceValue:   price,
		Quantity:     quantity,
		Category:     req.Category,
		Description:  req.Description,
		Manufacturer: req.Manufacturer,
		Username:     username,
	})
	if err != nil {
		return nil, mapStoreError(err, nil)
	}

	s.logger.Info().
		Str("username", username).
		Str("product_id", line.ProductID).
		Int("quantity", line.Quantity).
		Msg("item added to cart")

	s.publishCart(ctx, username)

	return line, nil
}

func (s *cartService) SetQuantity(ctx context.Context, username string, lineID int64, quantity int) error {
	if quantity <= 0 {
		return s.RemoveItem(ctx, username, lineID)
	}

	if err := s.repos.Carts.UpdateQuantity(ctx, username, lineID, quantity); err != nil {
		return mapStoreError(err, model.ErrCartLineNotFound)
	}

	s.publishCart(ctx, username)
	return nil
}

func (s *cartService) RemoveItem(ctx context.Context, username string, lineID int64) error {
	if err := s.repos.Carts.Delete(ctx, username, lineID); err != nil {
		return mapStoreError(err, model.ErrCartLineNotFound)
	}

	s.logger.Debug().Str("username", username).Int64("line_id", lineID).Msg("cart line removed")
	s.publishCart(ctx, username)
	return nil
}

func (s *cartService) Clear(ctx context.Context, username string) error {
	removed, err := s.repos.Carts.Clear(ctx, username)
	if err != nil {
		return mapStoreError(err, nil)
	}

	s.logger.Debug().Str("username", username).Int64("removed", removed).Msg("cart cleared")
	s.publishCart(ctx, username)
	return nil
}

func (s *cartService) Summary(ctx context.Context, username string) (*model.CartSummary, error) {
	summary, err := s.cart(ctx, username)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Error().Err(err).Str("username", username).Msg("failed to build cart summary")
		}
		return nil, err
	}
	return &summary, nil
}

func (s *cartService) WatchCart(ctx context.Context, username string) (*watch.Subscription[model.CartSummary], error) {
	return subscribe(ctx, s.hub.carts, username, func(ctx context.Context) (model.CartSummary, error) {
		return s.cart(ctx, username)
	})
}

// parsePrice reads a display price such as "$29.990 CLP", where dots and
// commas are thousands separators.
func parsePrice(display string) (float64, bool) {
	cleaned := strings.NewReplacer("$", "", "CLP", "", ".", "", ",", "").Replace(display)
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}
