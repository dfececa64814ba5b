package marketplace

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/gighub/internal/apperr"
	"github.com/sudo-init-do/gighub/internal/user"
	"github.com/sudo-init-do/gighub/internal/utils"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// bind decodes and validates the request body.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return apperr.Validation("invalid request body")
	}
	return c.Validate(req)
}

func floatQuery(c echo.Context, name string) (*float64, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return nil, apperr.Validation(name+" must be a non-negative number",
			apperr.FieldError{Field: name, Message: name + " must be a non-negative number"})
	}
	return &v, nil
}

// ListJobs returns the public job board.
// GET /jobs?category=&status=&minBudget=&maxBudget=&search=&page=&limit=
func (h *Handler) ListJobs(c echo.Context) error {
	minBudget, err := floatQuery(c, "minBudget")
	if err != nil {
		return err
	}
	maxBudget, err := floatQuery(c, "maxBudget")
	if err != nil {
		return err
	}
	q := JobQuery{
		Category:  Category(c.QueryParam("category")),
		Status:    JobStatus(c.QueryParam("status")),
		MinBudget: minBudget,
		MaxBudget: maxBudget,
		Search:    c.QueryParam("search"),
	}
	if q.Status != "" && !q.Status.Valid() {
		return apperr.Validation("unknown job status")
	}

	jobs, pagination, err := h.svc.ListJobs(c.Request().Context(), q, utils.PageFromQuery(c))
	if err != nil {
		return err
	}
	return utils.OK(c, echo.Map{"jobs": jobs, "pagination": pagination})
}

// GET /jobs/:id
func (h *Handler) GetJob(c echo.Context) error {
	job, err := h.svc.GetJob(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return utils.OK(c, job)
}

// GET /jobs/me?status=
func (h *Handler) MyJobs(c echo.Context) error {
	who, err := user.IdentityFrom(c)
	if err != nil {
		return err
	}
	status := JobStatus(c.QueryParam("status"))
	if status != "" && !status.Valid() {
		return apperr.Validation("unknown job status")
	}
	jobs, pagination, err := h.svc.MyJobs(c.Request().Context(), who, status, utils.PageFromQuery(c))
	if err != nil {
		return err
	}
	return utils.OK(c, echo.Map{"jobs": jobs, "pagination": pagination})
}

// POST /jobs
func (h *Handler) CreateJob(c echo.Context) error {
	who, err := user.IdentityFrom(c)
	if err != nil {
		return err
	}
	var req CreateJobRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	job, err := h.svc.CreateJob(c.Request().Context(), who, req)
	if err != nil {
		return err
	}
	return utils.Respond(c, http.StatusCreated, job, "Job created successfully")
}

// PUT /jobs/:id
func (h *Handler) UpdateJob(c echo.Context) error {
	who, err := user.IdentityFrom(c)
	if err != nil {
		return err
	}
	var req UpdateJobRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	job, err := h.svc.UpdateJob(c.Request().Context(), who, c.Param("id"), req.Patch())
	if err != nil {
		return err
	}
	return utils.Respond(c, http.StatusOK, job, "Job updated successfully")
}

// DELETE /jobs/:id
func (h *Handler) DeleteJob(c echo.Context) error {
	who, err := user.IdentityFrom(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteJob(c.Request().Context(), who, c.Param("id")); err != nil {
		return err
	}
	return utils.Respond(c, http.StatusOK, nil, "Job deleted successfully")
}

// POST /jobs/:id/claim
func (h *Handler) ClaimJob(c echo.Context) error {
	who, err := user.IdentityFrom(c)
	if err != nil {
		return err
	}
	job, err := h.svc.ClaimJob(c.Request().Context(), who, c.Param("id"))
	if err != nil {
		return err
	}
	return utils.Respond(c, http.StatusOK, job, "Job claimed successfully")
}

// POST /jobs/:id/complete
func (h *Handler) CompleteJob(c echo.Context) error {
	who, err := user.IdentityFrom(c)
	if err != nil {
		return err
	}
	job, err := h.svc.CompleteJob(c.Request().Context(), who, c.Param("id"))
	if err != nil {
		return err
	}
	return utils.Respond(c, http.StatusOK, job, "Job marked as completed")
}

// POST /jobs/:id/cancel
func (h *Handler) CancelJob(c echo.Context) error {
	who, err := user.IdentityFrom(c)
	if err != nil {
		return err
	}
	job, err := h.svc.CancelJob(c.Request().Context(), who, c.Param("id"))
	if err != nil {
		return err
	}
	return utils.Respond(c, http.StatusOK, job, "Job cancelled")
}

// POST /jobs/:id/bids
func (h *Handler) CreateBid(c echo.Context) error {
	who, err := user.IdentityFrom(c)
	if err != nil {
		return err
	}
	var req CreateBidRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	bid, err := h.svc.CreateBid(c.Request().Context(), who, c.Param("id"), req)
	if err != nil {
		return err
	}
	return utils.Respond(c, http.StatusCreated, bid, "Bid submitted successfully")
}

// GET /jobs/:id/bids
func (h *Handler) JobBids(c echo.Context) error {
	who, err := user.IdentityFrom(c)
	if err != nil {
		return err
	}
	bids, err := h.svc.JobBids(c.Request().Context(), who, c.Param("id"))
	if err != nil {
		return err
	}
	return utils.OK(c, echo.Map{"bids": bids, "count": len(bids)})
}

// GET /bids/me?status=
func (h *Handler) MyBids(c echo.Context) error {
	who, err := user.IdentityFrom(c)
	if err != nil {
		return err
	}
	bids, err := h.svc.MyBids(c.Request().Context(), who, BidStatus(c.QueryParam("status")))
	if err != nil {
		return err
	}
	return utils.OK(c, echo.Map{"bids": bids, "count": len(bids)})
}

// PUT /bids/:id
func (h *Handler) UpdateBid(c echo.Context) error {
	who, err := user.IdentityFrom(c)
	if err != nil {
		return err
	}
	var req UpdateBidRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	bid, err := h.svc.SetBidStatus(c.Request().Context(), who, c.Param("id"), req.Status)
	if err != nil {
		return err
	}
	return utils.Respond(c, http.StatusOK, bid, "Bid "+string(bid.Status))
}

// POST /jobs/:id/rating
func (h *Handler) CreateRating(c echo.Context) error {
	who, err := user.IdentityFrom(c)
	if err != nil {
		return err
	}
	var req CreateRatingRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	r, err := h.svc.CreateRating(c.Request().Context(), who, c.Param("id"), req)
	if err != nil {
		return err
	}
	return utils.Respond(c, http.StatusCreated, r, "Rating submitted successfully")
}

// GET /jobs/:id/rating
func (h *Handler) JobRating(c echo.Context) error {
	r, err := h.svc.JobRating(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return utils.OK(c, r)
}

// GET /users/:id/ratings
func (h *Handler) FreelancerRatings(c echo.Context) error {
	summary, ratings, pagination, err := h.svc.FreelancerRatings(c.Request().Context(), c.Param("id"), utils.PageFromQuery(c))
	if err != nil {
		return err
	}
	return utils.OK(c, echo.Map{"summary": summary, "ratings": ratings, "pagination": pagination})
}
