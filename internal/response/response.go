// Package response writes the {success, message, data} envelope used by
// every endpoint and maps classified errors onto it.
package response

import (
	"encoding/json"
	"net/http"
	"reflect"

	"go.uber.org/zap"

	"github.com/georgemunganga/marketplace-api/internal/apperr"
	"github.com/georgemunganga/marketplace-api/internal/platform/logger"
)

const (
	MessageSuccess   = "Sucesso!"
	MessageFailure   = "Falha ao executar operação."
	MessageNotFound  = "Nenhum registro encontrado."
	MessageUnallowed = "Operação não permitida!"
)

// Envelope is the body of every response.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// Write encodes env with the given status.
func Write(w http.ResponseWriter, status int, env Envelope) {
	if env.Data == nil {
		env.Data = ""
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(env)
}

// OK writes a successful envelope with the SUCCESS message.
func OK(w http.ResponseWriter, data any) {
	Write(w, http.StatusOK, Envelope{Success: true, Message: MessageSuccess, Data: data})
}

// Done writes a successful envelope with a custom message and no data.
func Done(w http.ResponseWriter, message string) {
	Write(w, http.StatusOK, Envelope{Success: true, Message: message, Data: ""})
}

// Created writes a 201 envelope.
func Created(w http.ResponseWriter, message string, data any) {
	Write(w, http.StatusCreated, Envelope{Success: true, Message: message, Data: data})
}

// Rejected writes a business rejection: success=false, HTTP 200.
func Rejected(w http.ResponseWriter, message string, data any) {
	Write(w, http.StatusOK, Envelope{Success: false, Message: message, Data: data})
}

// Collection writes items, or a NOT_FOUND envelope when items is empty.
func Collection(w http.ResponseWriter, items any) {
	v := reflect.ValueOf(items)
	if items == nil || (v.Kind() == reflect.Slice && v.Len() == 0) {
		Rejected(w, MessageNotFound, "")
		return
	}
	OK(w, items)
}

// Classify maps err onto the status and envelope the client receives.
func Classify(err error) (int, Envelope) {
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		msg := apperr.MessageOf(err)
		if msg == "" {
			msg = MessageNotFound
		}
		return http.StatusOK, Envelope{Success: false, Message: msg, Data: ""}
	case apperr.KindUnauthorized:
		return http.StatusOK, Envelope{Success: false, Message: MessageUnallowed, Data: ""}
	case apperr.KindInvalidOperation, apperr.KindInvalidToken, apperr.KindDuplicate:
		return http.StatusOK, Envelope{Success: false, Message: apperr.MessageOf(err), Data: ""}
	default:
		return http.StatusInternalServerError, Envelope{Success: false, Message: MessageFailure, Data: err.Error()}
	}
}

// Error logs err on the request logger and writes its envelope.
// Business rejections are logged at warn, everything else at error.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	status, env := Classify(err)
	log := logger.From(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error("request failed", zap.Error(err))
	} else {
		log.Warn("request rejected", zap.String("kind", apperr.KindOf(err).String()), zap.String("reason", env.Message))
	}
	Write(w, status, env)
}
