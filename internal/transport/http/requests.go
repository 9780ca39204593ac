package httptransport

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"

	"verigate/internal/kyc"
	id "verigate/pkg/domain"
	dErrors "verigate/pkg/domain-errors"
)

// SubmitRequest is the JSON body of POST /kyc/submit.
type SubmitRequest struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	DateOfBirth string `json:"date_of_birth"`
	Nationality string `json:"nationality"`
	Address     string `json:"address"`
	PhoneNumber string `json:"phone_number"`
}

// PersonalData parses the request into the domain shape. Field-level checks
// here cover format only; age and content rules belong to the case service.
func (r SubmitRequest) PersonalData() (kyc.PersonalData, error) {
	if !govalidator.StringLength(strings.TrimSpace(r.FirstName), "2", "100") {
		return kyc.PersonalData{}, dErrors.New(dErrors.CodeInvalidInput,
			"first name must be between 2 and 100 characters").WithMeta("field", "first_name")
	}
	if !govalidator.StringLength(strings.TrimSpace(r.LastName), "2", "100") {
		return kyc.PersonalData{}, dErrors.New(dErrors.CodeInvalidInput,
			"last name must be between 2 and 100 characters").WithMeta("field", "last_name")
	}
	dob, err := time.Parse("2006-01-02", r.DateOfBirth)
	if err != nil {
		return kyc.PersonalData{}, dErrors.New(dErrors.CodeInvalidInput,
			"date_of_birth must be formatted as YYYY-MM-DD").WithMeta("field", "date_of_birth")
	}
	if !govalidator.StringLength(strings.TrimSpace(r.Nationality), "2", "100") {
		return kyc.PersonalData{}, dErrors.New(dErrors.CodeInvalidInput,
			"nationality must be between 2 and 100 characters").WithMeta("field", "nationality")
	}
	if !govalidator.StringLength(strings.TrimSpace(r.Address), "10", "500") {
		return kyc.PersonalData{}, dErrors.New(dErrors.CodeInvalidInput,
			"address must be between 10 and 500 characters").WithMeta("field", "address")
	}
	return kyc.PersonalData{
		FirstName:   strings.TrimSpace(r.FirstName),
		LastName:    strings.TrimSpace(r.LastName),
		DateOfBirth: dob,
		Nationality: strings.TrimSpace(r.Nationality),
		Address:     strings.TrimSpace(r.Address),
		PhoneNumber: strings.TrimSpace(r.PhoneNumber),
	}, nil
}

// ReviewRequest is the JSON body of PUT /kyc/review/{caseID}.
type ReviewRequest struct {
	Decision string `json:"decision"`
	Reason   string `json:"reason,omitempty"`
	RiskTier string `json:"risk_tier,omitempty"`
}

// Domain parses the request into the service shape.
func (r ReviewRequest) Domain(caseID id.CaseID) (kyc.ReviewRequest, error) {
	tier, err := id.ParseRiskTier(r.RiskTier)
	if err != nil {
		return kyc.ReviewRequest{}, err
	}
	return kyc.ReviewRequest{
		CaseID:   caseID,
		Decision: kyc.Decision(r.Decision),
		Reason:   strings.TrimSpace(r.Reason),
		RiskTier: tier,
	}, nil
}

// parseListFilter reads the queue query parameters of GET /kyc/verifications.
// Unknown enum values fail fast; limit clamping is left to the service.
func parseListFilter(r *http.Request) (kyc.ListFilter, error) {
	var filter kyc.ListFilter
	q := r.URL.Query()

	if raw := q.Get("status"); raw != "" {
		status, err := id.ParseCaseStatus(raw)
		if err != nil {
			return filter, err
		}
		filter.Status = status
	}
	if raw := q.Get("user_id"); raw != "" {
		userID, err := id.ParseUserID(raw)
		if err != nil {
			return filter, err
		}
		filter.UserID = userID
	}
	if raw := q.Get("risk_tier"); raw != "" {
		tier, err := id.ParseRiskTier(raw)
		if err != nil {
			return filter, err
		}
		filter.RiskTier = tier
	}

	filter.SortBy = q.Get("sort")
	switch order := q.Get("order"); order {
	case "", "asc":
	case "desc":
		filter.SortDesc = true
	default:
		return filter, dErrors.New(dErrors.CodeInvalidInput, "order must be asc or desc")
	}

	var err error
	if filter.Limit, err = parseIntParam(q.Get("limit")); err != nil {
		return filter, dErrors.New(dErrors.CodeInvalidInput, "limit must be an integer")
	}
	if filter.Offset, err = parseIntParam(q.Get("offset")); err != nil {
		return filter, dErrors.New(dErrors.CodeInvalidInput, "offset must be an integer")
	}
	return filter, nil
}

func parseIntParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
