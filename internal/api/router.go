package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/teleclinic/telehealth-backend/internal/booking"
	"github.com/teleclinic/telehealth-backend/internal/notify"
)

// Handlers bundles the services the HTTP surface exposes.
type Handlers struct {
	Slots       *booking.SlotService
	Consults    *booking.ConsultationService
	Coordinator *booking.Coordinator
	Tokens      notify.TokenRepository
	Log         *zap.Logger
}

type RouterConfig struct {
	Handlers *Handlers
	PgPool   *pgxpool.Pool
	Redis    *redis.Client
	AMQP     *amqp091.Connection
	Log      *zap.Logger
	Env      string
	Version  string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.AMQP, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	h := cfg.Handlers

	r.Route("/availability", func(r chi.Router) {
		r.Get("/doctor/{doctorID}", h.listDoctorSlots)
		r.Get("/doctor/{doctorID}/range", h.listDoctorSlotsInRange)
		r.Get("/doctor/{doctorID}/free", h.listFreeSlots)
		r.Post("/", h.createSlot)
		r.Post("/bulk", h.bulkCreateSlots)
		r.Put("/{id}/status", h.updateSlotStatus)
		r.Delete("/{id}", h.deleteSlot)
	})

	r.Route("/consultations", func(r chi.Router) {
		r.Post("/book", h.bookConsultation)
		r.Put("/{id}/status", h.updateConsultationStatus)
		r.Put("/{id}/cancel", h.transitionHandler(h.Consults.Cancel))
		r.Put("/{id}/complete", h.transitionHandler(h.Consults.Complete))
		r.Put("/{id}/accept", h.transitionHandler(h.Consults.Accept))
		r.Post("/{id}/prescription", h.addPrescription)
		r.Delete("/{id}", h.deleteConsultation)

		r.Get("/patient/{patientID}", h.listHandler("patientID", h.Consults.ListByPatient))
		r.Get("/patient/{patientID}/confirmed", h.listHandler("patientID", h.Consults.ListConfirmedByPatient))
		r.Get("/patient/{patientID}/pending", h.listHandler("patientID", h.Consults.ListPendingByPatient))
		r.Get("/patient/{patientID}/prescriptions", h.listHandler("patientID", h.Consults.ListPrescriptions))

		r.Get("/doctor/{doctorID}", h.listHandler("doctorID", h.Consults.ListByDoctor))
		r.Get("/doctor/{doctorID}/upcoming", h.listHandler("doctorID", h.Consults.ListUpcomingByDoctor))
		r.Get("/doctor/{doctorID}/past", h.listHandler("doctorID", h.Consults.ListPastByDoctor))
	})

	r.Route("/device-tokens", func(r chi.Router) {
		r.Post("/", h.registerDeviceToken)
		r.Delete("/user/{userID}", h.deleteUserDeviceTokens)
		r.Delete("/{token}", h.deleteDeviceToken)
	})

	return r
}
