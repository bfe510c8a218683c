// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IFA Contributors

package account

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/samber/oops"
)

// Credential and profile constraints.
const (
	MinUsernameLength = 6
	MinPasswordLength = 8
	MinAge            = 1
	MaxAge            = 122
)

// Field names reported in validation errors.
const (
	FieldUsername  = "username"
	FieldPassword  = "password"
	FieldFirstName = "first_name"
	FieldLastName  = "last_name"
	FieldAge       = "age"
)

// CredentialValidator checks registration, password, and profile input.
// Each method returns the first violated rule as an ErrValidation error, or nil.
type CredentialValidator interface {
	ValidateRegistration(r Registration) error
	ValidateNewPassword(password string) error
	ValidateProfile(p ProfileUpdate) error
}

// RuleValidator is the default CredentialValidator.
type RuleValidator struct{}

// NewRuleValidator creates a RuleValidator.
func NewRuleValidator() *RuleValidator {
	return &RuleValidator{}
}

// fieldCheck is a single rule applied to a single field.
type fieldCheck struct {
	field string
	rule  string
	value any
	check validation.Rule
}

func required(field string, value any) fieldCheck {
	return fieldCheck{field: field, rule: "required", value: value, check: validation.Required.Error("must not be empty")}
}

func minRunes(field string, value string, n int) fieldCheck {
	return fieldCheck{
		field: field,
		rule:  "min_length",
		value: value,
		check: validation.RuneLength(n, 0).Error("is too short"),
	}
}

func passwordMaxBytes(value string) fieldCheck {
	return fieldCheck{
		field: FieldPassword,
		rule:  "max_bytes",
		value: value,
		check: validation.Length(0, MaxPasswordBytes).Error("is too long"),
	}
}

func ageChecks(age int) []fieldCheck {
	return []fieldCheck{
		{field: FieldAge, rule: "range", value: age, check: validation.Required.Error("is out of range")},
		{field: FieldAge, rule: "range", value: age, check: validation.Min(MinAge).Error("is out of range")},
		{field: FieldAge, rule: "range", value: age, check: validation.Max(MaxAge).Error("is out of range")},
	}
}

// firstViolation evaluates checks in order and reports the first failure.
func firstViolation(checks []fieldCheck) error {
	for _, c := range checks {
		if err := validation.Validate(c.value, c.check); err != nil {
			return oops.Code(CodeInvalidField).
				With("field", c.field).
				With("rule", c.rule).
				Wrapf(ErrValidation, "%s %s", c.field, err.Error())
		}
	}
	return nil
}

// ValidateRegistration checks presence of every field first, then lengths,
// then the age range.
func (v *RuleValidator) ValidateRegistration(r Registration) error {
	username := strings.TrimSpace(r.Username)
	checks := []fieldCheck{
		required(FieldUsername, username),
		required(FieldPassword, r.Password),
		required(FieldFirstName, strings.TrimSpace(r.FirstName)),
		required(FieldLastName, strings.TrimSpace(r.LastName)),
		minRunes(FieldUsername, username, MinUsernameLength),
		minRunes(FieldPassword, r.Password, MinPasswordLength),
		passwordMaxBytes(r.Password),
	}
	return firstViolation(append(checks, ageChecks(r.Age)...))
}

// ValidateNewPassword checks a replacement password.
func (v *RuleValidator) ValidateNewPassword(password string) error {
	return firstViolation([]fieldCheck{
		required(FieldPassword, password),
		minRunes(FieldPassword, password, MinPasswordLength),
		passwordMaxBytes(password),
	})
}

// ValidateProfile checks the mutable profile fields.
func (v *RuleValidator) ValidateProfile(p ProfileUpdate) error {
	checks := []fieldCheck{
		required(FieldFirstName, strings.TrimSpace(p.FirstName)),
		required(FieldLastName, strings.TrimSpace(p.LastName)),
	}
	return firstViolation(append(checks, ageChecks(p.Age)...))
}

var _ CredentialValidator = (*RuleValidator)(nil)
