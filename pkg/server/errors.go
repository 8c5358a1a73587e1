/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package server

import (
	"encoding/json"
	"net/http"

	"github.com/hyperledger/fabric-docsecrets/pkg/common/errors/status"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// HTTPStatus maps an error code to the status of the response reporting it.
func HTTPStatus(code status.Code) int {
	switch code {
	case status.InvalidArgument, status.MalformedCertificate:
		return http.StatusBadRequest
	case status.NotFound:
		return http.StatusNotFound
	case status.AlreadyExists, status.Conflict:
		return http.StatusConflict
	case status.DecryptionFailed:
		return http.StatusUnprocessableEntity
	case status.LedgerUnavailable, status.UnknownOutcome:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	body := errorBody{}

	s, ok := status.FromError(err)
	if ok {
		body.Error.Code = s.Code.String()
		body.Error.Message = s.Message
		if len(s.Details) > 0 {
			body.Error.Details = make(map[string]string, len(s.Details))
			for _, kp := range s.Details {
				body.Error.Details[kp.Name] = kp.Value
			}
		}
	} else {
		// details of unexpected failures stay in the log
		body.Error.Code = status.Unknown.String()
		body.Error.Message = "internal error"
	}

	code := HTTPStatus(status.CodeOf(err))
	if code == http.StatusInternalServerError {
		logger.Errorf("request failed: %+v", err)
	} else {
		logger.Debugf("request failed: %s", err)
	}

	writeJSON(w, code, body)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warnf("failed to write response: %s", err)
	}
}
