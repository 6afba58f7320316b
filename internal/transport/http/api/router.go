package apihttp

import (
	"errors"
	"net/http"
	"strconv"

	"reclamai/internal/engine"
	"reclamai/internal/intake"
	"reclamai/internal/session"
	"reclamai/internal/types"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Router exposes the negotiation and intake endpoints.
type Router struct {
	engine *engine.Engine
	intake *intake.Service
}

func NewRouter(e *engine.Engine, in *intake.Service) *Router {
	return &Router{engine: e, intake: in}
}

// Register mounts the API routes under the given group.
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.POST("/debtors", r.handleRegisterDebtor)
	group.GET("/debtors/:id/obligations", r.handleListObligations)
	group.POST("/debtors/:id/obligations", r.handleAddObligation)

	group.POST("/obligations/:id/negotiations", r.handleStartNegotiation)
	group.POST("/obligations/:id/counter", r.handleCounter)
	group.POST("/obligations/:id/accept", r.handleAccept)
	group.POST("/obligations/:id/reject", r.handleReject)
	group.GET("/obligations/:id/playbook", r.handlePlaybook)

	group.GET("/sessions/:id", r.handleSession)

	if r.intake != nil {
		group.POST("/intake/:case_id/messages", r.handleIntakeMessage)
		group.GET("/intake/:case_id", r.handleIntakeSnapshot)
		group.GET("/intake/:case_id/history", r.handleIntakeHistory)
	}
}

func (r *Router) handleRegisterDebtor(c *gin.Context) {
	var profile types.DebtorProfile
	if err := c.ShouldBindJSON(&profile); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid profile payload: " + err.Error()})
		return
	}
	if err := r.engine.RegisterProfile(c.Request.Context(), profile); err != nil {
		abortWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"debtor_id": profile.DebtorID, "obligations": len(profile.Obligations)})
}

func (r *Router) handleListObligations(c *gin.Context) {
	led, ok := r.engine.Ledger(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown debtor"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"debtor_id":      led.DebtorID(),
		"obligations":    led.Obligations(),
		"monthly_burden": led.TotalMonthlyBurden(),
		"high_risk":      led.HighRisk(),
	})
}

func (r *Router) handleAddObligation(c *gin.Context) {
	var ob types.Obligation
	if err := c.ShouldBindJSON(&ob); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid obligation payload: " + err.Error()})
		return
	}
	if err := r.engine.AddObligation(c.Request.Context(), c.Param("id"), ob); err != nil {
		abortWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"obligation_id": ob.ID})
}

func (r *Router) handleStartNegotiation(c *gin.Context) {
	traceID := c.Query("trace_id")
	if traceID == "" {
		traceID = uuid.NewString()
	}
	out, err := r.engine.StartNegotiation(c.Request.Context(), c.Param("id"), traceID)
	if err != nil {
		abortWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (r *Router) handleCounter(c *gin.Context) {
	var counter types.Proposal
	if err := c.ShouldBindJSON(&counter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid counter payload: " + err.Error()})
		return
	}
	obligationID := c.Param("id")
	if counter.ObligationID == "" {
		counter.ObligationID = obligationID
	}
	out, err := r.engine.HandleCounter(c.Request.Context(), obligationID, counter)
	if err != nil {
		abortWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (r *Router) handleAccept(c *gin.Context) {
	updated, err := r.engine.Accept(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"obligation": updated})
}

func (r *Router) handleReject(c *gin.Context) {
	var body struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&body)
	if body.Reason == "" {
		body.Reason = "rejected by debtor"
	}
	s, err := r.engine.Reject(c.Request.Context(), c.Param("id"), body.Reason)
	if err != nil {
		abortWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (r *Router) handlePlaybook(c *gin.Context) {
	pb, err := r.engine.Playbook(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, pb)
}

func (r *Router) handleSession(c *gin.Context) {
	s, ok := r.engine.Session(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown session"})
		return
	}
	c.JSON(http.StatusOK, s)
}

func (r *Router) handleIntakeMessage(c *gin.Context) {
	var body struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message payload: " + err.Error()})
		return
	}
	reply, err := r.intake.HandleMessage(c.Request.Context(), c.Param("case_id"), body.Text)
	if err != nil {
		abortWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

func (r *Router) handleIntakeSnapshot(c *gin.Context) {
	snap, ok := r.intake.Snapshot(c.Param("case_id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown case"})
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (r *Router) handleIntakeHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	history, err := r.intake.History(c.Request.Context(), c.Param("case_id"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": history})
}

// abortWithDomainError maps the domain error taxonomy onto HTTP statuses.
func abortWithDomainError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, types.ErrValidation), errors.Is(err, types.ErrInputRejected):
		status = http.StatusBadRequest
	case errors.Is(err, types.ErrConcurrencyConflict), errors.Is(err, session.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, types.ErrNoFeasibleProposal), errors.Is(err, types.ErrInfeasibleTerm):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, types.ErrRetrievalUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, types.ErrGenerationTimeout):
		status = http.StatusGatewayTimeout
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
