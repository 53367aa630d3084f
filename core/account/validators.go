package account

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/classpath/backend/core"
)

var (
	roleExclTag  = "roleexcl"
	roleExclText = "a user cannot hold more than one role"

	classRequiredTag  = "classrequired"
	classRequiredText = "a class is required for students"

	cpfRequiredTag  = "cpfrequired"
	cpfRequiredText = "a CPF is required for this role"

	// password policy
	pwdMinLen     = 8
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("password must contain at least %d characters", pwdMinLen)

	pwdNoSpaceTag  = "pwdnospace"
	pwdNoSpaceText = "password must not contain whitespace"

	pwdNotAllNumTag  = "pwdnotallnum"
	pwdNotAllNumText = "password cannot be entirely numeric"

	pwdComplexityTag  = "pwdcplx"
	pwdComplexityText = "password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character"
	specialRegex      = regexp.MustCompile("[^A-Za-z0-9]")

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password cannot be similar to user attributes"

	pwdNoCommonTag  = "pwdnocommon"
	pwdNoCommonText = "password is too common"
	commonPasswords = make([]string, 0, 19727) // number of total pwds in /assets/common-passwords.txt.gz
)

// InitValidators registers account-specific validators and translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(newAccountStructValidation, NewAccount{})

	core.RegisterCustomTranslation(validate, translator, roleExclTag, roleExclText)
	core.RegisterCustomTranslation(validate, translator, classRequiredTag, classRequiredText)
	core.RegisterCustomTranslation(validate, translator, cpfRequiredTag, cpfRequiredText)
	core.RegisterCustomTranslation(validate, translator, pwdMinLenTag, pwdMinLenText)
	core.RegisterCustomTranslation(validate, translator, pwdNoSpaceTag, pwdNoSpaceText)
	core.RegisterCustomTranslation(validate, translator, pwdNotAllNumTag, pwdNotAllNumText)
	core.RegisterCustomTranslation(validate, translator, pwdComplexityTag, pwdComplexityText)
	core.RegisterCustomTranslation(validate, translator, pwdAttrSimTag, pwdAttrSimText)
	core.RegisterCustomTranslation(validate, translator, pwdNoCommonTag, pwdNoCommonText)
}

// LoadCommonPasswords loads the common-passwords asset if present.
func LoadCommonPasswords(logger core.Logger) {
	cwd, _ := os.Getwd()
	pwdAssetPath := filepath.Join(cwd, "assets", "common-passwords.txt.gz")
	file, err := os.Open(pwdAssetPath)
	if err != nil {
		logger.Warn(fmt.Sprintf("common passwords list not loaded: %v", err))
		return
	}
	//goland:noinspection GoUnhandledErrorResult
	defer file.Close()
	if gzRdr, err := gzip.NewReader(file); err == nil {
		scanner := bufio.NewScanner(gzRdr)
		for scanner.Scan() {
			commonPasswords = append(commonPasswords, strings.TrimSpace(scanner.Text()))
		}
	}
	sort.Strings(commonPasswords)
}

// newAccountStructValidation does struct level validation on NewAccount.
func newAccountStructValidation(sl validator.StructLevel) {
	na, ok := sl.Current().Interface().(NewAccount)
	if !ok {
		return
	}

	// at most one role flag
	if na.roleFlagCount() > 1 {
		sl.ReportError(na.IsStudent, "role", "IsStudent", roleExclTag, "")
	}

	if role, flagged := na.Role(); flagged {
		if na.CPF == "" {
			sl.ReportError(na.CPF, "cpf", "CPF", cpfRequiredTag, "")
		}
		if role == RoleStudent && na.ClassID == "" {
			sl.ReportError(na.ClassID, "class_id", "ClassID", classRequiredTag, "")
		}
	}

	validatePassword(na.Password, na.RegistrationNumber, na.Email, na.FullName, sl)
}

// validatePassword applies the password policy; regNum, email and name are
// user attributes the password may not be similar to.
func validatePassword(pwd, regNum, email, name string, sl validator.StructLevel) {
	reportError := func(tag string) {
		sl.ReportError(pwd, "password", "Password", tag, "")
	}

	if len(pwd) < pwdMinLen {
		reportError(pwdMinLenTag)
	}
	if strings.ContainsAny(pwd, " \t\n\r") {
		reportError(pwdNoSpaceTag)
	}

	var hasUpper, hasLower, hasDigit, allDigits bool
	allDigits = true
	for _, r := range pwd {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
			allDigits = false
		case unicode.IsLower(r):
			hasLower = true
			allDigits = false
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			allDigits = false
		}
	}
	if allDigits && pwd != "" {
		reportError(pwdNotAllNumTag)
	}
	if !(hasUpper && hasLower && hasDigit && specialRegex.MatchString(pwd)) {
		reportError(pwdComplexityTag)
	}

	// similarity to user attributes
	lowerPwd := strings.ToLower(pwd)
	for _, val := range []string{regNum, email, name} {
		if val == "" {
			continue
		}
		matcher := difflib.NewMatcher([]string{lowerPwd}, []string{strings.ToLower(val)})
		if matcher.QuickRatio() >= pwdMaxSim {
			reportError(pwdAttrSimTag)
			break
		}
	}

	// common passwords
	if len(commonPasswords) > 0 {
		if idx := sort.SearchStrings(commonPasswords, lowerPwd); idx < len(commonPasswords) {
			if commonPasswords[idx] == lowerPwd {
				reportError(pwdNoCommonTag)
			}
		}
	}
}
