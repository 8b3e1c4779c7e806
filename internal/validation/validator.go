package validation

import (
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"wax-intake/internal/domain/submission"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Form mirrors the multipart field names of POST /upload. All values
// arrive as strings; typed conversion happens only after validation.
type Form struct {
	FullName       string `form:"fullName" validate:"required,min=2,max=120"`
	Email          string `form:"email" validate:"required,asciiemail"`
	Phone          string `form:"phone" validate:"required,phone"`
	Title          string `form:"title" validate:"required,min=2,max=120"`
	Artist         string `form:"artist" validate:"required,min=2,max=120"`
	Genre          string `form:"genre" validate:"required,genre"`
	Year           string `form:"year" validate:"required,recordyear"`
	Condition      string `form:"condition" validate:"required,condition"`
	Price          string `form:"price" validate:"required,recordprice"`
	RecaptchaToken string `form:"recaptchaToken" validate:"required,min=10"`
}

// FieldErrors collects every failed rule keyed by form field name, so
// the client gets all problems in one round trip.
type FieldErrors map[string][]string

var (
	emailRegex = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	phoneRegex = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)
	priceRegex = regexp.MustCompile(`^\d+(\.\d{1,2})?$`)
	yearRegex  = regexp.MustCompile(`^\d{4}$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report errors under the form field name, not the Go field name.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	must(v.RegisterValidation("asciiemail", func(fl validator.FieldLevel) bool {
		return emailRegex.MatchString(fl.Field().String())
	}))
	must(v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phoneRegex.MatchString(fl.Field().String())
	}))
	must(v.RegisterValidation("genre", func(fl validator.FieldLevel) bool {
		return submission.IsValidGenre(fl.Field().String())
	}))
	must(v.RegisterValidation("condition", func(fl validator.FieldLevel) bool {
		return submission.IsValidCondition(fl.Field().String())
	}))
	must(v.RegisterValidation("recordyear", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		if !yearRegex.MatchString(value) {
			return false
		}
		year, err := strconv.Atoi(value)
		if err != nil {
			return false
		}
		return year >= submission.MinYear && year <= time.Now().Year()
	}))
	must(v.RegisterValidation("recordprice", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		if !priceRegex.MatchString(value) {
			return false
		}
		price, err := decimal.NewFromString(value)
		if err != nil {
			return false
		}
		return price.IsPositive() && price.LessThanOrEqual(decimal.NewFromInt(submission.MaxPrice))
	}))
	return v
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// Parse trims the form, runs every rule and returns either a typed
// draft or the full per-field error collection. It never returns both
// and never panics on malformed input.
func Parse(form Form) (submission.Draft, FieldErrors) {
	form = trimmed(form)

	if err := validate.Struct(form); err != nil {
		fieldErrs := FieldErrors{}
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			fieldErrs["form"] = []string{"invalid form data"}
			return submission.Draft{}, fieldErrs
		}
		for _, fe := range verrs {
			field := fe.Field()
			fieldErrs[field] = append(fieldErrs[field], messageFor(fe))
		}
		return submission.Draft{}, fieldErrs
	}

	// Regex-validated above, conversions cannot fail here.
	year, _ := strconv.Atoi(form.Year)
	price, _ := decimal.NewFromString(form.Price)

	return submission.Draft{
		FullName:       form.FullName,
		Email:          form.Email,
		Phone:          form.Phone,
		Title:          form.Title,
		Artist:         form.Artist,
		Genre:          form.Genre,
		Year:           year,
		Condition:      form.Condition,
		Price:          price,
		RecaptchaToken: form.RecaptchaToken,
	}, nil
}

func trimmed(f Form) Form {
	f.FullName = strings.TrimSpace(f.FullName)
	f.Email = strings.TrimSpace(f.Email)
	f.Phone = strings.TrimSpace(f.Phone)
	f.Title = strings.TrimSpace(f.Title)
	f.Artist = strings.TrimSpace(f.Artist)
	f.Genre = strings.TrimSpace(f.Genre)
	f.Year = strings.TrimSpace(f.Year)
	f.Condition = strings.TrimSpace(f.Condition)
	f.Price = strings.TrimSpace(f.Price)
	f.RecaptchaToken = strings.TrimSpace(f.RecaptchaToken)
	return f
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "asciiemail":
		return "must be a valid email address"
	case "phone":
		return "must be an international phone number like +14155551234"
	case "genre":
		return "must be one of the listed genres"
	case "condition":
		return "must be one of the listed condition grades"
	case "recordyear":
		return "must be a 4-digit year between " + strconv.Itoa(submission.MinYear) + " and the current year"
	case "recordprice":
		return "must be a positive amount up to " + strconv.Itoa(submission.MaxPrice) + " with at most 2 decimals"
	default:
		return "is invalid"
	}
}
