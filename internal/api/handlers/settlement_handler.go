package handlers

import (
	"auction-settlement/internal/domain"
	"auction-settlement/pkg/logger"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// SettlementHandler lets operators trigger a pass by hand and see its report.
// Only the current leader runs a pass, the same as the cron trigger.
type SettlementHandler struct {
	closer         domain.BatchRunner
	payments       domain.BatchRunner
	leaderElection domain.LeaderElection
	instanceID     string
	log            logger.Logger
}

type OutcomeResponse struct {
	AuctionID     string   `json:"auction_id"`
	Status        string   `json:"status"`
	ErrorKind     string   `json:"error_kind,omitempty"`
	Error         string   `json:"error,omitempty"`
	PaymentID     string   `json:"payment_id,omitempty"`
	Amount        *float64 `json:"amount,omitempty"`
	ScheduledDate string   `json:"scheduled_date,omitempty"`
}

type ReportResponse struct {
	Pass       string            `json:"pass"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Succeeded  int               `json:"succeeded"`
	Failed     int               `json:"failed"`
	Outcomes   []OutcomeResponse `json:"outcomes"`
}

func NewSettlementHandler(closer, payments domain.BatchRunner, leaderElection domain.LeaderElection,
	instanceID string, log logger.Logger) *SettlementHandler {
	return &SettlementHandler{
		closer:         closer,
		payments:       payments,
		leaderElection: leaderElection,
		instanceID:     instanceID,
		log:            log,
	}
}

func (h *SettlementHandler) Register(g *echo.Group) {
	g.POST("/settlement/close", h.RunClosing)
	g.POST("/settlement/payments", h.RunPayments)
}

func (h *SettlementHandler) RunClosing(c echo.Context) error {
	return h.run(c, domain.PassClosing, h.closer)
}

func (h *SettlementHandler) RunPayments(c echo.Context) error {
	return h.run(c, domain.PassPayment, h.payments)
}

func (h *SettlementHandler) run(c echo.Context, pass domain.Pass, runner domain.BatchRunner) error {
	h.log.Info("Manual settlement run requested", "pass", pass, "remote_addr", c.RealIP())

	isLeader, err := h.leaderElection.IsLeader(c.Request().Context(), h.instanceID)
	if err != nil {
		h.log.Error("Failed to check leadership", "pass", pass, "error", err)
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Could not verify leadership"})
	}
	if !isLeader {
		h.log.Warn("Rejected manual run on non-leader", "pass", pass, "instance_id", h.instanceID)
		return c.JSON(http.StatusConflict, map[string]string{"error": "Instance is not the settlement leader"})
	}

	report, err := runner.Run(c.Request().Context())
	if err != nil {
		h.log.Error("Manual settlement run failed", "pass", pass, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Settlement pass failed"})
	}

	return c.JSON(http.StatusOK, toReportResponse(report))
}

func toReportResponse(report *domain.BatchReport) ReportResponse {
	resp := ReportResponse{
		Pass:       string(report.Pass),
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
		Succeeded:  report.Succeeded,
		Failed:     len(report.Failures()),
		Outcomes:   make([]OutcomeResponse, 0, len(report.Outcomes)),
	}

	for _, o := range report.Outcomes {
		out := OutcomeResponse{AuctionID: o.AuctionID, Status: "ok"}
		if o.Failed() {
			out.Status = "failed"
			out.ErrorKind = string(o.Kind())
			out.Error = o.Err.Error()
		}
		if o.Payment != nil {
			amount := o.Payment.Amount
			out.PaymentID = o.Payment.ID
			out.Amount = &amount
			out.ScheduledDate = o.Payment.ScheduledDate.Format(time.DateOnly)
		}
		resp.Outcomes = append(resp.Outcomes, out)
	}
	return resp
}
