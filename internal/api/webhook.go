package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/sharrell/surveybot/internal/config"
	"github.com/sharrell/surveybot/internal/survey"
	"github.com/sharrell/surveybot/internal/swml"
)

// Handler serves the SWML document and the SWAIG webhook functions.
type Handler struct {
	svc      *survey.Service
	cfg      *config.Config
	validate *validator.Validate
}

// NewHandler creates a webhook handler over the survey service.
func NewHandler(svc *survey.Service, cfg *config.Config) *Handler {
	return &Handler{
		svc:      svc,
		cfg:      cfg,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the SWML document route and the SWAIG function routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Document)
	r.Route("/swaig", func(r chi.Router) {
		r.Post("/lookup_caller", h.LookupCaller)
		r.Post("/create_caller", h.CreateCaller)
		r.Post("/question_and_answer", h.QuestionAndAnswer)
	})
}

// functionArgs is the union of parsed SWAIG function arguments. The platform
// sends one parsed object per call; unknown fields are left zero.
type functionArgs struct {
	PhoneNumber string `json:"phone_number"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Age         string `json:"age"`
	Question    string `json:"question"`
	Answer      string `json:"answer"`
}

// envelope is the SWAIG webhook request body.
type envelope struct {
	CallerIDNum string `json:"caller_id_num"`
	Argument    struct {
		Parsed []functionArgs `json:"parsed"`
		Raw    string         `json:"raw"`
	} `json:"argument"`
}

// args returns the first parsed argument object, or a zero value when the
// platform sent none.
func (e *envelope) args() functionArgs {
	if len(e.Argument.Parsed) == 0 {
		return functionArgs{}
	}
	return e.Argument.Parsed[0]
}

// phoneNumber returns the caller identity for this request: the explicit
// phone_number argument when the agent passed one, otherwise the calling
// number from the platform envelope. Session state is never consulted; the
// phone number is the only session key.
func (e *envelope) phoneNumber() string {
	if p := e.args().PhoneNumber; p != "" {
		return p
	}
	return e.CallerIDNum
}

func decodeEnvelope(r *http.Request) (*envelope, error) {
	var env envelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode webhook body: %w", err)
	}
	return &env, nil
}

type lookupResponse struct {
	Known          bool   `json:"known"`
	FirstName      string `json:"first_name,omitempty"`
	LastName       string `json:"last_name,omitempty"`
	Question       string `json:"question,omitempty"`
	SurveyComplete bool   `json:"survey_complete,omitempty"`
	// Response is the narration read by the conversational agent.
	Response string `json:"response"`
}

type nextStepResponse struct {
	Question       string `json:"question,omitempty"`
	SurveyComplete bool   `json:"survey_complete,omitempty"`
	Response       string `json:"response"`
}

// Document serves the SWML document that configures the voice agent.
func (h *Handler) Document(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, swml.Build(h.cfg.Agent, h.cfg.WebhookBaseURL))
}

// LookupCaller resolves a caller by phone number. An unknown number is a
// normal outcome, not an error: the agent proceeds to caller creation.
func (h *Handler) LookupCaller(w http.ResponseWriter, r *http.Request) {
	env, err := decodeEnvelope(r)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	phone := env.phoneNumber()
	if phone == "" {
		Error(w, http.StatusBadRequest, "phone_number is required")
		return
	}

	res, err := h.svc.Resolve(r.Context(), phone)
	if errors.Is(err, survey.ErrUnknownCaller) {
		JSON(w, http.StatusOK, lookupResponse{
			Known:    false,
			Response: "The caller does not exist. Proceed to gather the caller's details and register them.",
		})
		return
	}
	if err != nil {
		slog.Error("lookup caller failed", "error", err, "phone", phone)
		Error(w, http.StatusInternalServerError, "lookup failed")
		return
	}

	resp := lookupResponse{
		Known:     true,
		FirstName: res.Caller.FirstName,
		LastName:  res.Caller.LastName,
	}
	if res.SurveyComplete {
		resp.SurveyComplete = true
		resp.Response = fmt.Sprintf("The caller %s already exists and has already answered all of the questions in the survey. Let the caller know and end the call.", res.Caller.FullName())
	} else {
		resp.Question = res.Question.Question
		resp.Response = fmt.Sprintf("The caller already exists. The caller's name is %s. The next question is: %s", res.Caller.FullName(), res.Question.Question)
	}
	JSON(w, http.StatusOK, resp)
}

// createCallerArgs carries the validated create_caller arguments.
type createCallerArgs struct {
	FirstName   string `validate:"required"`
	LastName    string `validate:"required"`
	Age         string `validate:"required"`
	PhoneNumber string `validate:"required,e164"`
}

// CreateCaller registers a first-time caller and returns their first question.
func (h *Handler) CreateCaller(w http.ResponseWriter, r *http.Request) {
	env, err := decodeEnvelope(r)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	args := env.args()
	in := createCallerArgs{
		FirstName:   args.FirstName,
		LastName:    args.LastName,
		Age:         args.Age,
		PhoneNumber: env.phoneNumber(),
	}
	if err := h.validate.Struct(in); err != nil {
		Error(w, http.StatusBadRequest, fmt.Sprintf("invalid caller details: %v", err))
		return
	}

	_, next, err := h.svc.CreateCaller(r.Context(), in.FirstName, in.LastName, in.Age, in.PhoneNumber)
	if errors.Is(err, survey.ErrDuplicateCaller) {
		Error(w, http.StatusConflict, "caller already registered, use lookup_caller instead")
		return
	}
	if err != nil {
		slog.Error("create caller failed", "error", err, "phone", in.PhoneNumber)
		Error(w, http.StatusInternalServerError, "caller creation failed")
		return
	}

	resp := nextStepResponse{SurveyComplete: next.SurveyComplete}
	if next.SurveyComplete {
		resp.Response = "There are no questions in the survey. Thank the caller and end the call."
	} else {
		resp.Question = next.Question.Question
		resp.Response = fmt.Sprintf("The first question is: %s", next.Question.Question)
	}
	JSON(w, http.StatusOK, resp)
}

// QuestionAndAnswer records an answer against the caller's outstanding
// question and returns the next one.
func (h *Handler) QuestionAndAnswer(w http.ResponseWriter, r *http.Request) {
	env, err := decodeEnvelope(r)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	phone := env.phoneNumber()
	if phone == "" {
		Error(w, http.StatusBadRequest, "calling number is required")
		return
	}

	args := env.args()
	next, err := h.svc.RecordAnswer(r.Context(), phone, args.Question, args.Answer)
	switch {
	case errors.Is(err, survey.ErrUnknownCaller):
		Error(w, http.StatusNotFound, "caller is not registered, use lookup_caller first")
		return
	case errors.Is(err, survey.ErrStaleAnswer):
		Error(w, http.StatusConflict, "answer does not match the caller's outstanding question")
		return
	case err != nil:
		slog.Error("record answer failed", "error", err, "phone", phone)
		Error(w, http.StatusInternalServerError, "answer recording failed")
		return
	}

	JSON(w, http.StatusOK, h.nextStep(next))
}

func (h *Handler) nextStep(next *survey.NextStep) nextStepResponse {
	if next.SurveyComplete {
		return nextStepResponse{
			SurveyComplete: true,
			Response:       "Success. There are no more questions in the survey. Thank the caller and end the call.",
		}
	}
	return nextStepResponse{
		Question: next.Question.Question,
		Response: fmt.Sprintf("Success. The answer has been recorded. The next question is: %s", next.Question.Question),
	}
}
