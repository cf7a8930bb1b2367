package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-chat-service/internal/dto"
	"github.com/noah-isme/gema-chat-service/internal/repository"
)

// PaymentGateway is the narrow contract with the external billing provider.
// The provider is consumed, never implemented here.
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, courseID uint, priceCents int64, currency string) (dto.CheckoutResponse, error)
}

// PaymentService creates checkout sessions for catalog entries.
type PaymentService interface {
	Checkout(ctx context.Context, payload dto.CheckoutCreateRequest) (dto.CheckoutResponse, error)
}

type paymentService struct {
	courses repository.CourseRepository
	gateway PaymentGateway
	logger  zerolog.Logger
}

// NewPaymentService constructs the checkout glue service.
func NewPaymentService(courses repository.CourseRepository, gateway PaymentGateway, logger zerolog.Logger) PaymentService {
	return &paymentService{
		courses: courses,
		gateway: gateway,
		logger:  logger.With().Str("component", "payment_service").Logger(),
	}
}

func (s *paymentService) Checkout(ctx context.Context, payload dto.CheckoutCreateRequest) (dto.CheckoutResponse, error) {
	course, err := s.courses.FindByID(ctx, payload.CourseID)
	if err != nil {
		return dto.CheckoutResponse{}, err
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, course.ID, course.PriceCents, course.Currency)
	if err != nil {
		return dto.CheckoutResponse{}, fmt.Errorf("payment gateway: %w", err)
	}

	s.logger.Info().Uint("course_id", course.ID).Str("session_id", session.SessionID).Msg("checkout session created")

	return session, nil
}

// httpPaymentGateway talks to the provider's REST endpoint using the fiber
// agent so no extra HTTP client dependency is needed.
type httpPaymentGateway struct {
	endpoint string
	apiKey   string
	timeout  time.Duration
}

// NewHTTPPaymentGateway builds the default gateway adapter.
func NewHTTPPaymentGateway(endpoint, apiKey string, timeout time.Duration) PaymentGateway {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &httpPaymentGateway{endpoint: endpoint, apiKey: apiKey, timeout: timeout}
}

func (g *httpPaymentGateway) CreateCheckoutSession(ctx context.Context, courseID uint, priceCents int64, currency string) (dto.CheckoutResponse, error) {
	if g.endpoint == "" {
		return dto.CheckoutResponse{}, fmt.Errorf("payment gateway endpoint not configured")
	}

	body, err := json.Marshal(fiber.Map{
		"reference": fmt.Sprintf("course-%d", courseID),
		"amount":    priceCents,
		"currency":  currency,
	})
	if err != nil {
		return dto.CheckoutResponse{}, err
	}

	agent := fiber.Post(g.endpoint + "/v1/checkout/sessions")
	agent.Timeout(g.timeout)
	agent.ContentType(fiber.MIMEApplicationJSON)
	agent.Set(fiber.HeaderAuthorization, "Bearer "+g.apiKey)
	agent.Body(body)

	status, responseBody, errs := agent.Bytes()
	if len(errs) > 0 {
		return dto.CheckoutResponse{}, errs[0]
	}
	if status < 200 || status >= 300 {
		return dto.CheckoutResponse{}, fmt.Errorf("payment gateway returned status %d", status)
	}

	var session dto.CheckoutResponse
	if err := json.Unmarshal(responseBody, &session); err != nil {
		return dto.CheckoutResponse{}, err
	}

	return session, nil
}
