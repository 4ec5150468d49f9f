package handler

import (
	"errors"
	"net/http"
	"reflect"

	"gamestore/internal/apierror"
	"gamestore/internal/infra"
	"gamestore/internal/middleware"
	"gamestore/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails;
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.WithCode(apierror.CodeBadRequest, "invalid JSON: "+err.Error()))
		return false
	}
	return validateStruct(c, req)
}

// bindQuery is bindAndValidate for query-string filters.
func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.WithCode(apierror.CodeBadRequest, "invalid query: "+err.Error()))
		return false
	}
	return validateStruct(c, req)
}

func validateStruct(c *gin.Context, req interface{}) bool {
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			c.JSON(http.StatusBadRequest, apierror.WithCode(apierror.CodeBadRequest, err.Error()))
			return false
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

// parseID reads a UUID path parameter, writing 400 when malformed.
func parseID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.WithCode(apierror.CodeBadRequest, "invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}

// errorStatus maps business error kinds to HTTP status and code.
var errorStatus = []struct {
	kind   error
	status int
	code   string
}{
	{service.ErrNotFound, http.StatusNotFound, apierror.CodeNotFound},
	{service.ErrProductNotFound, http.StatusNotFound, apierror.CodeProductNotFound},
	{service.ErrDuplicateRecord, http.StatusConflict, apierror.CodeDuplicateRecord},
	{service.ErrInsufficientStock, http.StatusConflict, apierror.CodeInsufficientStock},
	{service.ErrInvalidStateTransition, http.StatusConflict, apierror.CodeInvalidStateTransition},
	{service.ErrHasDependentSales, http.StatusConflict, apierror.CodeHasDependentSales},
	{service.ErrInvalidQuantity, http.StatusUnprocessableEntity, apierror.CodeInvalidQuantity},
	{service.ErrExceedsCentralStock, http.StatusUnprocessableEntity, apierror.CodeExceedsCentralStock},
	{service.ErrNoInventoryForBranch, http.StatusUnprocessableEntity, apierror.CodeNoInventoryForBranch},
	{service.ErrValidation, http.StatusUnprocessableEntity, apierror.CodeValidation},
	{service.ErrArithmeticInconsistency, http.StatusInternalServerError, apierror.CodeArithmetic},
}

// writeError renders err. Business errors keep their message and offending
// id; anything else is logged and hidden behind a generic 500.
func writeError(c *gin.Context, err error) {
	var be *service.Error
	if errors.As(err, &be) {
		for _, m := range errorStatus {
			if errors.Is(be.Kind, m.kind) {
				if m.status >= http.StatusInternalServerError {
					log.Error().Err(err).Str("request_id", c.GetString(middleware.RequestIDKey)).Msg("consistency check failed")
				}
				c.JSON(m.status, &apierror.APIError{Detail: be.Error(), Code: m.code, ID: be.ID})
				return
			}
		}
	}
	if errors.Is(err, infra.ErrAllocationBusy) {
		c.JSON(http.StatusConflict, apierror.WithCode(apierror.CodeBusy, err.Error()))
		return
	}
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, apierror.WithCode(apierror.CodeInternal, "internal server error"))
}
