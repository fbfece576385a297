package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ── Error bag ────────────────────────────────────────────────────────────────

// Errors holds validation errors, mirroring Laravel's MessageBag.
// JSON output: {"message": "...", "errors": {"field": ["msg1", "msg2"]}}
type Errors struct {
	Message string              `json:"message"`
	Bag     map[string][]string `json:"errors"`
}

func (e *Errors) Add(field, msg string) {
	if e.Bag == nil {
		e.Bag = make(map[string][]string)
	}
	if e.Message == "" {
		e.Message = msg
	}
	e.Bag[field] = append(e.Bag[field], msg)
}

// Has returns true if there are any errors.
func (e *Errors) Has() bool { return len(e.Bag) > 0 }

// First returns the first error for a field.
func (e *Errors) First(field string) string {
	if msgs := e.Bag[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// Error lets a bag travel as an error; the exception handler renders it as 422.
func (e *Errors) Error() string { return e.Message }

func (e *Errors) StatusCode() int { return 422 }

var alphaDash = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ── Rules ────────────────────────────────────────────────────────────────────

// Rules is a map of field → pipe-separated rule string.
// e.g. Rules{"email": "required|email", "age": "required|numeric|gte:18"}
type Rules map[string]string

// Validator validates a flat map of input values against Laravel-style rules.
type Validator struct {
	data   map[string]string
	rules  Rules
	errors *Errors
	ran    bool
}

// Make creates a new Validator, mirroring Validator::make($data, $rules).
func Make(data map[string]string, rules Rules) *Validator {
	return &Validator{data: data, rules: rules, errors: &Errors{}}
}

// Fails runs validation and returns true if any rule fails.
func (v *Validator) Fails() bool {
	if !v.ran {
		v.ran = true
		v.validate()
	}
	return v.errors.Has()
}

// Passes runs validation and returns true if all rules pass.
func (v *Validator) Passes() bool { return !v.Fails() }

// Errors returns the validation error bag.
func (v *Validator) Errors() *Errors { return v.errors }

func (v *Validator) validate() {
	for field, ruleStr := range v.rules {
		value := v.data[field]
		rules := strings.Split(ruleStr, "|")

		if hasRule(rules, "nullable") && value == "" {
			continue
		}
		if hasRule(rules, "sometimes") {
			if _, present := v.data[field]; !present {
				continue
			}
		}

		for _, rule := range rules {
			name, param, _ := strings.Cut(strings.TrimSpace(rule), ":")
			if name == "" || name == "nullable" || name == "sometimes" || name == "string" {
				continue
			}
			if msg, ok := v.check(field, value, name, param); !ok {
				v.errors.Add(field, msg)
				break // bail on the first failure per field
			}
		}
	}
}

// check applies one rule. Primitive formats are delegated to validator/v10;
// rules that compare against other fields or parse numbers are done here.
func (v *Validator) check(field, value, rule, param string) (string, bool) {
	label := strings.ReplaceAll(field, "_", " ")

	if tag, ok := ruleTag(rule, param); ok {
		subject := value
		switch rule {
		case "required":
			subject = strings.TrimSpace(value)
		case "boolean":
			subject = strings.ToLower(value)
		}
		if err := engine().Var(subject, tag); err != nil {
			return message(label, rule, param), false
		}
		return "", true
	}

	switch rule {
	case "integer":
		if _, err := strconv.Atoi(value); err != nil {
			return message(label, rule, param), false
		}
	case "alpha_dash":
		if !alphaDash.MatchString(value) {
			return message(label, rule, param), false
		}
	case "regex":
		re, err := regexp.Compile(param)
		if err != nil || !re.MatchString(value) {
			return message(label, rule, param), false
		}
	case "not_in":
		for _, d := range strings.Split(param, ",") {
			if strings.TrimSpace(d) == value {
				return message(label, rule, param), false
			}
		}
	case "confirmed":
		if v.data[field+"_confirmation"] != value {
			return message(label, rule, param), false
		}
	case "same":
		if v.data[param] != value {
			return message(label, rule, param), false
		}
	case "different":
		if v.data[param] == value {
			return message(label, rule, param), false
		}
	case "gt", "gte", "lt", "lte":
		f, err := strconv.ParseFloat(value, 64)
		t, _ := strconv.ParseFloat(param, 64)
		if err != nil || !compare(rule, f, t) {
			return message(label, rule, param), false
		}
	}
	return "", true
}

// ruleTag translates a Laravel rule into a validator/v10 tag.
func ruleTag(rule, param string) (string, bool) {
	switch rule {
	case "required":
		return "required", true
	case "email":
		return "email", true
	case "url":
		return "url", true
	case "numeric":
		return "numeric", true
	case "boolean":
		return "oneof=true false 1 0 yes no", true
	case "alpha":
		return "alpha", true
	case "alpha_num":
		return "alphanum", true
	case "min":
		return "min=" + param, true
	case "max":
		return "max=" + param, true
	case "size":
		return "len=" + param, true
	case "between":
		lo, hi, ok := strings.Cut(param, ",")
		if !ok {
			return "", false
		}
		return "min=" + strings.TrimSpace(lo) + ",max=" + strings.TrimSpace(hi), true
	case "in":
		parts := strings.Split(param, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return "oneof=" + strings.Join(parts, " "), true
	case "uuid":
		return "uuid", true
	case "ip":
		return "ip", true
	}
	return "", false
}

func compare(rule string, f, t float64) bool {
	switch rule {
	case "gt":
		return f > t
	case "gte":
		return f >= t
	case "lt":
		return f < t
	}
	return f <= t
}

func message(field, rule, param string) string {
	switch rule {
	case "required":
		return fmt.Sprintf("The %s field is required.", field)
	case "email":
		return fmt.Sprintf("The %s must be a valid email address.", field)
	case "url":
		return fmt.Sprintf("The %s must be a valid URL.", field)
	case "numeric":
		return fmt.Sprintf("The %s must be a number.", field)
	case "integer":
		return fmt.Sprintf("The %s must be an integer.", field)
	case "boolean":
		return fmt.Sprintf("The %s field must be true or false.", field)
	case "alpha":
		return fmt.Sprintf("The %s may only contain letters.", field)
	case "alpha_num":
		return fmt.Sprintf("The %s may only contain letters and numbers.", field)
	case "alpha_dash":
		return fmt.Sprintf("The %s may only contain letters, numbers, dashes and underscores.", field)
	case "min":
		return fmt.Sprintf("The %s must be at least %s characters.", field, param)
	case "max":
		return fmt.Sprintf("The %s may not be greater than %s characters.", field, param)
	case "size", "len":
		return fmt.Sprintf("The %s must be %s characters.", field, param)
	case "between":
		return fmt.Sprintf("The %s must be between %s characters.", field, strings.Replace(param, ",", " and ", 1))
	case "in", "not_in", "oneof":
		return fmt.Sprintf("The selected %s is invalid.", field)
	case "confirmed":
		return fmt.Sprintf("The %s confirmation does not match.", field)
	case "same", "eqfield":
		return fmt.Sprintf("The %s and %s must match.", field, param)
	case "different":
		return fmt.Sprintf("The %s and %s must be different.", field, param)
	case "gt":
		return fmt.Sprintf("The %s must be greater than %s.", field, param)
	case "gte":
		return fmt.Sprintf("The %s must be greater than or equal to %s.", field, param)
	case "lt":
		return fmt.Sprintf("The %s must be less than %s.", field, param)
	case "lte":
		return fmt.Sprintf("The %s must be less than or equal to %s.", field, param)
	}
	return fmt.Sprintf("The %s is invalid.", field)
}

// ── Struct validation ────────────────────────────────────────────────────────

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// engine returns the shared validator, reporting fields by their json name.
func engine() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// Struct validates v's `validate:"..."` tags. It returns nil, or an *Errors
// keyed by json field name.
//
//	type StoreUser struct {
//	    Email string `json:"email" validate:"required,email"`
//	}
func Struct(v any) error {
	err := engine().Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	bag := &Errors{}
	for _, fe := range verrs {
		bag.Add(fe.Field(), message(strings.ReplaceAll(fe.Field(), "_", " "), fe.Tag(), fe.Param()))
	}
	return bag
}

func hasRule(rules []string, name string) bool {
	for _, r := range rules {
		if strings.TrimSpace(r) == name {
			return true
		}
	}
	return false
}
