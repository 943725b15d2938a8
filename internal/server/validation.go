package server

import (
	"regexp"
	"strings"

	"tasktracker/internal/domain/errors"
	"tasktracker/internal/domain/models"

	"github.com/go-playground/validator"
)

var rgbColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("rgbcolor", func(fl validator.FieldLevel) bool {
		return rgbColor.MatchString(fl.Field().String())
	})
	return v
}

func validateUpdateTask(req models.UpdateTaskRequest) error {
	if req.Title.Value != nil {
		if err := validate.Var(strings.TrimSpace(*req.Title.Value), "min=1,max=200"); err != nil {
			return errors.ErrInvalidTitle
		}
	}
	if req.Description.Value != nil {
		if err := validate.Var(*req.Description.Value, "max=1000"); err != nil {
			return errors.ErrInvalidDescription
		}
	}
	if req.Priority.Value != nil && !req.Priority.Value.Valid() {
		return errors.ErrInvalidPriority
	}
	if req.CategoryID.Value != nil && *req.CategoryID.Value <= 0 {
		return errors.ErrInvalidCategory
	}
	if req.DueDate.Value != nil {
		if _, err := models.ParseDueDate(*req.DueDate.Value); err != nil {
			return errors.ErrInvalidDueDate
		}
	}
	return nil
}

func validateCreateTask(req models.CreateTaskRequest) error {
	if err := validate.Struct(req); err != nil {
		return err
	}
	if req.DueDate != nil {
		if _, err := models.ParseDueDate(*req.DueDate); err != nil {
			return errors.ErrInvalidDueDate
		}
	}
	return nil
}

func validateBulkUpdates(u models.BulkTaskUpdates) error {
	if u.Priority.Value != nil && !u.Priority.Value.Valid() {
		return errors.ErrInvalidPriority
	}
	if u.CategoryID.Value != nil && *u.CategoryID.Value <= 0 {
		return errors.ErrInvalidCategory
	}
	return nil
}

func validateUpdateCategory(req models.UpdateCategoryRequest) error {
	if req.Name.Value != nil {
		if err := validate.Var(strings.TrimSpace(*req.Name.Value), "min=1,max=50"); err != nil {
			return errors.ErrInvalidName
		}
	}
	if req.Color.Value != nil && !rgbColor.MatchString(*req.Color.Value) {
		return errors.ErrInvalidColor
	}
	return nil
}

// validationErrorToErrorResponse maps the first failing field onto a domain error.
func validationErrorToErrorResponse(err error) error {
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, verr := range verrs {
			field := verr.Field()
			switch {
			case field == "Username":
				return errors.ErrInvalidUsername
			case field == "Email":
				return errors.ErrInvalidEmail
			case field == "Password":
				return errors.ErrInvalidPassword
			case field == "Title":
				return errors.ErrInvalidTitle
			case field == "Description":
				return errors.ErrInvalidDescription
			case field == "Priority":
				return errors.ErrInvalidPriority
			case field == "CategoryID":
				return errors.ErrInvalidCategory
			case field == "Name":
				return errors.ErrInvalidName
			case field == "Color":
				return errors.ErrInvalidColor
			case strings.HasPrefix(field, "TaskIDs"):
				if verr.Tag() == "gt" {
					return errors.ErrInvalidTaskID
				}
				return errors.ErrBatchEmpty
			}
		}
	}
	if errors.KindOf(err) == errors.KindValidation {
		return err
	}
	return errors.ErrValidationFailed
}
