package lobby

import (
	"gamelobby/internal/auth"
	"gamelobby/internal/model"
	"gamelobby/internal/wireproto"
)

func (s *Server) handleRegister(req wireproto.Message) wireproto.Message {
	username, _ := req["username"].(string)
	password, _ := req["password"].(string)
	if username == "" || password == "" {
		return errorMsg("Username and password required")
	}

	existing, err := s.catalog.FindOne("User", map[string]any{
		"username": username, "account_type": "player",
	})
	if err != nil {
		return errorMsg(err.Error())
	}
	if existing != nil {
		return errorMsg("Username already exists")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return errorMsg(err.Error())
	}

	doc, err := model.AsDoc(model.User{Username: username, PasswordHash: hash, AccountType: model.AccountPlayer})
	if err != nil {
		return errorMsg(err.Error())
	}
	if _, err := s.catalog.Insert("User", doc); err != nil {
		return errorMsg("Registration failed")
	}

	return wireproto.Message{"success": true, "message": "Player account created"}
}

func (s *Server) handleLogin(sess *connSession, req wireproto.Message) wireproto.Message {
	username, _ := req["username"].(string)
	password, _ := req["password"].(string)
	if username == "" || password == "" {
		return errorMsg("Username and password required")
	}

	user, err := s.catalog.FindOne("User", map[string]any{
		"username": username, "account_type": "player",
	})
	if err != nil || user == nil {
		return errorMsg("Invalid username or password")
	}

	stored, _ := user["password_hash"].(string)
	ok, needsUpgrade := auth.VerifyPassword(password, stored)
	if !ok {
		return errorMsg("Invalid username or password")
	}

	userID, _ := user["_id"].(string)

	if mfaEnabled, _ := user["mfa_enabled"].(bool); mfaEnabled {
		code, _ := req["mfa_code"].(string)
		secret, _ := user["mfa_secret"].(string)
		if !auth.ValidateTOTP(secret, code) {
			return errorMsg("Invalid username or password")
		}
	}

	if needsUpgrade {
		if newHash, err := auth.HashPassword(password); err == nil {
			s.catalog.Update("User", map[string]any{"_id": userID}, map[string]any{"password_hash": newHash})
		}
	}

	if err := s.manager.Login(userID, username); err != nil {
		return errorMsg("Account already logged in")
	}

	sess.loggedIn = true
	sess.userID = userID
	sess.username = username

	return wireproto.Message{"success": true, "message": "Welcome " + username + "!"}
}

// handleEnrollMFA generates a fresh TOTP secret and QR code for the
// caller, who must confirm_mfa with a valid code before it takes
// effect (SPEC_FULL.md §8.4).
func (s *Server) handleEnrollMFA(sess *connSession) wireproto.Message {
	enrollment, err := auth.GenerateMFASecret(sess.username)
	if err != nil {
		return errorMsg(err.Error())
	}

	if _, err := s.catalog.Update("User", map[string]any{"_id": sess.userID}, map[string]any{
		"mfa_secret":  enrollment.Secret,
		"mfa_enabled": false,
	}); err != nil {
		return errorMsg(err.Error())
	}

	return wireproto.Message{
		"success":     true,
		"secret":      enrollment.Secret,
		"qr_code_png": enrollment.QRCodePNG,
	}
}

// handleConfirmMFA flips mfa_enabled once the caller proves possession
// of the enrolled secret with a valid current code.
func (s *Server) handleConfirmMFA(sess *connSession, req wireproto.Message) wireproto.Message {
	code, _ := req["code"].(string)
	if code == "" {
		return errorMsg("code is required")
	}

	user, err := s.catalog.FindOne("User", map[string]any{"_id": sess.userID})
	if err != nil || user == nil {
		return errorMsg("account not found")
	}
	secret, _ := user["mfa_secret"].(string)
	if secret == "" {
		return errorMsg("no MFA enrollment in progress")
	}
	if !auth.ValidateTOTP(secret, code) {
		return errorMsg("invalid code")
	}

	if _, err := s.catalog.Update("User", map[string]any{"_id": sess.userID}, map[string]any{"mfa_enabled": true}); err != nil {
		return errorMsg(err.Error())
	}
	return wireproto.Message{"success": true}
}

func errorMsg(message string) wireproto.Message {
	return wireproto.Message{"success": false, "error": message}
}
