package server

import (
	"fmt"
	"html"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"

	"github.com/ludo-technologies/solscan/internal/constants"
)

var (
	validate  *validator.Validate
	sanitizer *bluemonday.Policy
)

func init() {
	validate = validator.New()
	sanitizer = bluemonday.StrictPolicy()

	if err := validate.RegisterValidation("contract_name", validateContractName); err != nil {
		panic(fmt.Sprintf("server: register contract_name validation: %v", err))
	}
}

// analyzeRequest is the body of POST /api/ml/analyze
type analyzeRequest struct {
	ContractCode string `json:"contractCode"`
	ContractName string `json:"contractName" validate:"omitempty,max=256,contract_name"`
	SolcVersion  string `json:"solcVersion" validate:"omitempty,max=64"`
}

// batchEntry is one value of the POST /api/ml/batch body
type batchEntry struct {
	ContractCode string `json:"contractCode"`
}

// validateContractName rejects control characters
func validateContractName(fl validator.FieldLevel) bool {
	for _, r := range fl.Field().String() {
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}

// sanitizeContractName strips markup and surrounding whitespace, falling back
// to the unknown contract name. Entities are decoded again so that names like
// "A&B" survive; markup hidden behind entities is stripped on the next round.
func sanitizeContractName(name string) string {
	clean := name
	for i := 0; i < 3; i++ {
		next := html.UnescapeString(sanitizer.Sanitize(clean))
		if next == clean {
			break
		}
		clean = next
	}
	clean = strings.TrimSpace(clean)
	if clean == "" || clean != html.UnescapeString(sanitizer.Sanitize(clean)) {
		return constants.UnknownContractName
	}
	return clean
}
