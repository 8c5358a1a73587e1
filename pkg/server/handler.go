/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/hyperledger/fabric-docsecrets/pkg/common/errors/status"
	"github.com/hyperledger/fabric-docsecrets/pkg/docsecrets"
)

const maxBodySize = 1024 * 1024

// Service is the workflow behind the API.
type Service interface {
	ImportIdentity(label, mspID string, certPEM, keyPEM []byte) error
	ClientID(label string) (*docsecrets.ClientIdentity, error)
	BlockchainInfo(ctx context.Context, label string) (*docsecrets.BlockchainInfo, error)
	Register(ctx context.Context, label string) (*docsecrets.KeyPair, error)
	StoreSecret(ctx context.Context, label, fileHash string, secret, recipientCertPEM []byte, opts ...docsecrets.StoreOption) error
	SecretExists(ctx context.Context, label, fileHash string, requesterCertPEM []byte) (bool, error)
	RetrieveSecret(ctx context.Context, label, fileHash string, priv []byte) ([]byte, error)
	RemoveSecret(ctx context.Context, label, fileHash string) error
}

// Handler decodes API requests and calls the service. Certificates and keys
// travel base64 encoded.
type Handler struct {
	service Service
}

// NewHandler returns a handler for service.
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

type importIdentityRequest struct {
	EnrollmentID    string `json:"enrollmentID"`
	MSPID           string `json:"mspId"`
	PublicKeyECDSA  string `json:"publicKeyECDSA"`
	PrivateKeyECDSA string `json:"privateKeyECDSA"`
}

type registerRequest struct {
	EnrollmentID string `json:"enrollmentID"`
}

type registerResponse struct {
	PublicKeyECIES  string `json:"publicKeyECIES"`
	PrivateKeyECIES string `json:"privateKeyECIES"`
}

type storeSecretRequest struct {
	EnrollmentID            string `json:"enrollmentID"`
	FileHash                string `json:"fileHash"`
	FilePassword            string `json:"filePassword"`
	RecipientPublicKeyECDSA string `json:"recipientPublicKeyECDSA"`
	RecipientMSPID          string `json:"recipientMspId"`
}

type secretExistsRequest struct {
	EnrollmentID   string `json:"enrollmentID"`
	FileHash       string `json:"fileHash"`
	PublicKeyECDSA string `json:"publicKeyECDSA"`
}

type retrieveSecretRequest struct {
	EnrollmentID    string `json:"enrollmentID"`
	FileHash        string `json:"fileHash"`
	PrivateKeyECIES string `json:"privateKeyECIES"`
}

type removeSecretRequest struct {
	EnrollmentID string `json:"enrollmentID"`
	FileHash     string `json:"fileHash"`
}

type resultResponse struct {
	Result string `json:"result"`
}

type passwordResponse struct {
	Password string `json:"password"`
}

type blockchainInfoResponse struct {
	BlockNumber       string `json:"blockNumber"`
	CurrentBlockHash  string `json:"currentBlockHash"`
	PreviousBlockHash string `json:"previousBlockHash"`
	ChannelName       string `json:"channelName"`
	ClientID          string `json:"clientId"`
}

var okResponse = resultResponse{Result: "ok"}

// ImportIdentity handles POST /user/wallet.
func (h *Handler) ImportIdentity(w http.ResponseWriter, r *http.Request) {
	var req importIdentityRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	certPEM, err := decodeField("publicKeyECDSA", req.PublicKeyECDSA)
	if err != nil {
		writeError(w, err)
		return
	}
	keyPEM, err := decodeField("privateKeyECDSA", req.PrivateKeyECDSA)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.service.ImportIdentity(req.EnrollmentID, req.MSPID, certPEM, keyPEM); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse)
}

// Register handles POST /user/eccrypto/generate.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	keys, err := h.service.Register(r.Context(), req.EnrollmentID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, registerResponse{
		PublicKeyECIES:  base64.StdEncoding.EncodeToString(keys.PublicKey),
		PrivateKeyECIES: base64.StdEncoding.EncodeToString(keys.PrivateKey),
	})
}

// StoreSecret handles POST /document/password.
func (h *Handler) StoreSecret(w http.ResponseWriter, r *http.Request) {
	var req storeSecretRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	var recipient []byte
	if req.RecipientPublicKeyECDSA != "" {
		var err error
		if recipient, err = decodeField("recipientPublicKeyECDSA", req.RecipientPublicKeyECDSA); err != nil {
			writeError(w, err)
			return
		}
	}

	var opts []docsecrets.StoreOption
	if req.RecipientMSPID != "" {
		opts = append(opts, docsecrets.WithRecipientMSPID(req.RecipientMSPID))
	}

	if err := h.service.StoreSecret(r.Context(), req.EnrollmentID, req.FileHash, []byte(req.FilePassword), recipient, opts...); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse)
}

// SecretExists handles POST /document/password/exist.
func (h *Handler) SecretExists(w http.ResponseWriter, r *http.Request) {
	var req secretExistsRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	certPEM, err := decodeField("publicKeyECDSA", req.PublicKeyECDSA)
	if err != nil {
		writeError(w, err)
		return
	}

	exists, err := h.service.SecretExists(r.Context(), req.EnrollmentID, req.FileHash, certPEM)
	if err != nil {
		writeError(w, err)
		return
	}

	result := "false"
	if exists {
		result = "true"
	}
	writeJSON(w, http.StatusOK, resultResponse{Result: result})
}

// RetrieveSecret handles POST /document/password/get. An absent secret is
// reported as an empty password.
func (h *Handler) RetrieveSecret(w http.ResponseWriter, r *http.Request) {
	var req retrieveSecretRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	priv, err := decodeField("privateKeyECIES", req.PrivateKeyECIES)
	if err != nil {
		writeError(w, err)
		return
	}

	secret, err := h.service.RetrieveSecret(r.Context(), req.EnrollmentID, req.FileHash, priv)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, passwordResponse{Password: string(secret)})
}

// RemoveSecret handles POST /document/password/remove.
func (h *Handler) RemoveSecret(w http.ResponseWriter, r *http.Request) {
	var req removeSecretRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.service.RemoveSecret(r.Context(), req.EnrollmentID, req.FileHash); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse)
}

// ClientID handles POST /system/identity.
func (h *Handler) ClientID(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	id, err := h.service.ClientID(req.EnrollmentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, id)
}

// BlockchainInfo handles POST /system/blockchaininfo.
func (h *Handler) BlockchainInfo(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	info, err := h.service.BlockchainInfo(r.Context(), req.EnrollmentID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, blockchainInfoResponse{
		BlockNumber:       strconv.FormatUint(info.BlockNumber, 10),
		CurrentBlockHash:  info.CurrentBlockHash,
		PreviousBlockHash: info.PreviousBlockHash,
		ChannelName:       info.ChannelName,
		ClientID:          info.ClientID,
	})
}

func decode(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	if err := dec.Decode(v); err != nil {
		return status.New(status.InvalidArgument, "invalid request body: "+err.Error())
	}
	return nil
}

func decodeField(name, value string) ([]byte, error) {
	if value == "" {
		return nil, status.New(status.InvalidArgument, name+" is required")
	}
	b, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, status.New(status.InvalidArgument, name+" is not valid base64")
	}
	return b, nil
}
