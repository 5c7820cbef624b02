package auth

import (
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
)

func TestGenerateMFASecretProducesValidatableCode(t *testing.T) {
	enrollment, err := GenerateMFASecret("alice")
	if err != nil {
		t.Fatalf("GenerateMFASecret: %v", err)
	}
	if enrollment.Secret == "" {
		t.Fatalf("expected non-empty secret")
	}
	if len(enrollment.QRCodePNG) == 0 {
		t.Fatalf("expected non-empty QR PNG")
	}

	code, err := totp.GenerateCode(enrollment.Secret, time.Now())
	if err != nil {
		t.Fatalf("GenerateCode: %v", err)
	}

	if !ValidateTOTP(enrollment.Secret, code) {
		t.Fatalf("expected freshly generated code to validate")
	}
}

func TestValidateTOTPRejectsGarbage(t *testing.T) {
	if ValidateTOTP("", "123456") {
		t.Fatalf("expected empty secret to fail")
	}
	if ValidateTOTP("JBSWY3DPEHPK3PXP", "") {
		t.Fatalf("expected empty code to fail")
	}
	if ValidateTOTP("JBSWY3DPEHPK3PXP", "000000") {
		t.Fatalf("expected wrong code to fail (astronomically unlikely flake)")
	}
}
