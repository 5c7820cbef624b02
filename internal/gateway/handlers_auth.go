package gateway

import (
	"gamelobby/internal/auth"
	"gamelobby/internal/model"
	"gamelobby/internal/wireproto"
)

func (s *Server) handleRegister(req wireproto.Message) wireproto.Message {
	username, _ := req["username"].(string)
	password, _ := req["password"].(string)
	if username == "" || password == "" {
		return errorMsg(errInvalidRequest, "username and password are required")
	}

	existing, err := s.catalog.FindOne("User", map[string]any{
		"username": username, "account_type": "developer",
	})
	if err != nil {
		return errorMsg(errInternalError, err.Error())
	}
	if existing != nil {
		return errorMsg("DuplicateUser", "a developer account with that username already exists")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return errorMsg(errInternalError, err.Error())
	}

	doc, err := model.AsDoc(model.User{
		Username:     username,
		PasswordHash: hash,
		AccountType:  model.AccountDeveloper,
	})
	if err != nil {
		return errorMsg(errInternalError, err.Error())
	}
	id, err := s.catalog.Insert("User", doc)
	if err != nil {
		return errorMsg(errInternalError, err.Error())
	}

	return wireproto.Message{"success": true, "user_id": id}
}

func (s *Server) handleLogin(sess *session, req wireproto.Message) wireproto.Message {
	username, _ := req["username"].(string)
	password, _ := req["password"].(string)
	if username == "" || password == "" {
		return errorMsg(errInvalidRequest, "username and password are required")
	}

	user, err := s.catalog.FindOne("User", map[string]any{
		"username": username, "account_type": "developer",
	})
	if err != nil {
		return errorMsg(errInternalError, err.Error())
	}
	if user == nil {
		return errorMsg("InvalidCredentials", "unknown username or password")
	}

	stored, _ := user["password_hash"].(string)
	ok, needsUpgrade := auth.VerifyPassword(password, stored)
	if !ok {
		return errorMsg("InvalidCredentials", "unknown username or password")
	}

	if needsUpgrade {
		if newHash, err := auth.HashPassword(password); err == nil {
			id, _ := user["_id"].(string)
			s.catalog.Update("User", map[string]any{"_id": id}, map[string]any{"password_hash": newHash})
		}
	}

	id, _ := user["_id"].(string)
	sess.loggedIn = true
	sess.userID = id
	sess.username = username

	return wireproto.Message{"success": true, "user_id": id, "username": username}
}

func (s *Server) handleLogout(sess *session) wireproto.Message {
	*sess = session{}
	return wireproto.Message{"success": true}
}

func errorMsg(code, message string) wireproto.Message {
	return wireproto.Message{"success": false, "error": code, "message": message}
}
