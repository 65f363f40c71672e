package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/adrianncovaci/uni-chain/internal/chain"
	"github.com/adrianncovaci/uni-chain/internal/types"
)

// Submitter signs and submits a call descriptor to the ledger node, feeding
// lifecycle status text to the callback until a terminal state.
type Submitter interface {
	SubmitAndWatch(ctx context.Context, call types.Call, onStatus func(string)) error
}

// toBaseUnits converts a display amount ("1.5") to base units. Input that
// fails to parse is passed through verbatim; the node rejects it and the
// rejection text surfaces on the status line.
func toBaseUnits(amount string) string {
	base, err := chain.ParseBalance(amount)
	if err != nil {
		return amount
	}
	return fmt.Sprintf("%d", base)
}

// submit dispatches the call in the background and answers immediately. The
// confirm dialog closes on submission; completion arrives later through the
// status line.
func (s *Server) submit(w http.ResponseWriter, call types.Call) {
	s.setStatus(fmt.Sprintf("Submitting %s...", call.Operation))

	go func() {
		if err := s.submitter.SubmitAndWatch(context.Background(), call, s.setStatus); err != nil {
			s.logger.Error(fmt.Sprintf("Submission of %s failed: %v", call.Operation, err))
			s.setStatus(fmt.Sprintf("Transaction failed: %v", err))
		}
	}()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "submitted"})
}

// handleCreateCourse mints a new course owned by the viewer
func (s *Server) handleCreateCourse(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.logger.Info("Action: create course")
	s.submit(w, types.NewCreateCall())
}

// handleSetPrice changes the listing price of a course the viewer owns
func (s *Server) handleSetPrice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Dna   string `json:"dna"`
		Price string `json:"price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	dna := strings.TrimSpace(req.Dna)
	price := strings.TrimSpace(req.Price)
	if dna == "" || price == "" {
		http.Error(w, "dna and price are required", http.StatusBadRequest)
		return
	}

	s.logger.Info(fmt.Sprintf("Action: set price of %s to %s %s", dna, price, chain.TokenSymbol))
	s.submit(w, types.NewSetPriceCall(dna, toBaseUnits(price)))
}

// handleTransfer moves ownership of a course to another account
func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Receiver string `json:"receiver"`
		Dna      string `json:"dna"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	receiver := strings.TrimSpace(req.Receiver)
	dna := strings.TrimSpace(req.Dna)
	if receiver == "" || dna == "" {
		http.Error(w, "receiver and dna are required", http.StatusBadRequest)
		return
	}

	s.logger.Info(fmt.Sprintf("Action: transfer %s to %s", dna, receiver))
	s.submit(w, types.NewTransferCall(receiver, dna))
}

// handleBuyCourse bids on a listed course
func (s *Server) handleBuyCourse(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Dna   string `json:"dna"`
		Price string `json:"price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	dna := strings.TrimSpace(req.Dna)
	price := strings.TrimSpace(req.Price)
	if dna == "" || price == "" {
		http.Error(w, "dna and price are required", http.StatusBadRequest)
		return
	}

	s.logger.Info(fmt.Sprintf("Action: buy %s for %s %s", dna, price, chain.TokenSymbol))
	s.submit(w, types.NewBuyCall(dna, toBaseUnits(price)))
}

// handleBreedCourse derives a new course from two the viewer already owns
func (s *Server) handleBreedCourse(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		FirstParent  string `json:"first_parent"`
		SecondParent string `json:"second_parent"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	first := strings.TrimSpace(req.FirstParent)
	second := strings.TrimSpace(req.SecondParent)
	if first == "" || second == "" {
		http.Error(w, "first_parent and second_parent are required", http.StatusBadRequest)
		return
	}

	s.logger.Info(fmt.Sprintf("Action: breed %s with %s", first, second))
	s.submit(w, types.NewBreedCall(first, second))
}
