package credential

import (
	"encoding/json"
	"net/http"
)

// Handler exposes the public signing key.
type Handler struct {
	signer *JWTSigner
}

func NewHandler(signer *JWTSigner) *Handler {
	return &Handler{signer: signer}
}

func (h *Handler) JWKS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=300")
	_ = json.NewEncoder(w).Encode(h.signer.JWKS())
}
