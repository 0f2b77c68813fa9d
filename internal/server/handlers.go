package server

import (
	"fmt"
	"math/big"
	"net/http"
	"strconv"

	"github.com/danmuck/milestonectl/internal/ledger"
	"github.com/danmuck/milestonectl/internal/milestone"
	"github.com/danmuck/milestonectl/internal/observability"
	"github.com/danmuck/milestonectl/internal/protocol"
	"github.com/danmuck/milestonectl/internal/protocol/directive"
	"github.com/danmuck/milestonectl/internal/vault"
	"github.com/gin-gonic/gin"
)

type encodeRequest struct {
	Milestones []milestone.Milestone `json:"milestones"`
}

type dataRequest struct {
	Data string `json:"data"`
}

type directiveResponse struct {
	Kind      directive.Kind     `json:"kind"`
	Selector  string             `json:"selector,omitempty"`
	Signature string             `json:"signature,omitempty"`
	Payment   *milestone.Payment `json:"payment,omitempty"`
}

type methodInfo struct {
	Method           ledger.Method `json:"method"`
	ExtraGas         uint64        `json:"extraGas"`
	TakesMilestoneID bool          `json:"takesMilestoneId"`
	TakesTarget      bool          `json:"takesTarget"`
}

type proposeRequest struct {
	From       string                `json:"from"`
	Milestones []milestone.Milestone `json:"milestones,omitempty"`
	Data       string                `json:"data,omitempty"`
}

type callRequest struct {
	From   string `json:"from"`
	ID     uint64 `json:"id"`
	Target string `json:"target,omitempty"`
	Hash   string `json:"hash,omitempty"`
}

func (s *Server) handleEncode(c *gin.Context) {
	var req encodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, badRequest(err))
		return
	}
	ms, err := milestone.NewList(req.Milestones)
	if err != nil {
		respondError(c, err)
		return
	}
	data, err := milestone.Encode(ms, vault.Encoder{})
	observability.RecordCodec("encode", len(data), err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": protocol.EncodeHex(data)})
}

func (s *Server) handleDecode(c *gin.Context) {
	raw, ok := s.bindData(c)
	if !ok {
		return
	}
	ms, err := milestone.DecodeWithLimits(raw, s.limits)
	observability.RecordCodec("decode", len(raw), err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"milestones": ms})
}

func (s *Server) handleDirective(c *gin.Context) {
	raw, ok := s.bindData(c)
	if !ok {
		return
	}
	d, err := directive.Decode(raw)
	observability.RecordCodec("directive", len(raw), err)
	if err != nil {
		respondError(c, err)
		return
	}
	resp := directiveResponse{Kind: directive.KindUnknown}
	if pay, ok := d.(directive.AuthorizePayment); ok {
		resp.Kind = pay.Kind()
		resp.Selector = "0x" + directive.SelectorHex(resp.Kind)
		resp.Signature = directive.Signature(resp.Kind)
		resp.Payment = &milestone.Payment{
			PayDescription: pay.Description,
			PayRecipient:   milestone.Address(pay.Recipient),
			PayValue:       new(big.Int).Set(pay.Value),
			PayDelay:       pay.Delay,
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleState(c *gin.Context) {
	st, err := s.tracker.State(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) handleMethods(c *gin.Context) {
	methods := ledger.Methods()
	out := make([]methodInfo, 0, len(methods))
	for _, m := range methods {
		out = append(out, methodInfo{
			Method:           m,
			ExtraGas:         m.ExtraGas(),
			TakesMilestoneID: m.TakesMilestoneID(),
			TakesTarget:      m.TakesTarget(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"methods": out})
}

func (s *Server) handlePropose(c *gin.Context) {
	var req proposeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, badRequest(err))
		return
	}
	from, err := milestone.ParseAddress(req.From)
	if err != nil {
		respondError(c, badRequest(fmt.Errorf("from: %w", err)))
		return
	}

	var receipt ledger.Receipt
	switch {
	case req.Data != "" && len(req.Milestones) > 0:
		respondError(c, badRequest(fmt.Errorf("send either milestones or data, not both")))
		return
	case req.Data != "":
		receipt, err = s.tracker.ProposeEncoded(c.Request.Context(), from, req.Data)
	default:
		var ms []milestone.Milestone
		if ms, err = milestone.NewList(req.Milestones); err != nil {
			break
		}
		receipt, err = s.tracker.ProposeMilestones(c.Request.Context(), from, ms)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, receipt)
}

func (s *Server) handleCall(c *gin.Context) {
	method, err := ledger.ParseMethod(c.Param("method"))
	if err != nil {
		respondError(c, err)
		return
	}
	if method == ledger.MethodProposeMilestones {
		respondError(c, badRequest(fmt.Errorf("use /v1/tracker/propose for %s", method)))
		return
	}
	var req callRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, badRequest(err))
		return
	}
	from, err := milestone.ParseAddress(req.From)
	if err != nil {
		respondError(c, badRequest(fmt.Errorf("from: %w", err)))
		return
	}

	call := ledger.NewCall(method, from)
	if method.TakesMilestoneID() {
		call.MilestoneID = req.ID
	}
	if method == ledger.MethodAcceptProposedMilestones {
		call.Hash = req.Hash
	}
	if method.TakesTarget() {
		target, err := milestone.ParseAddress(req.Target)
		if err != nil {
			respondError(c, badRequest(fmt.Errorf("target: %w", err)))
			return
		}
		call.Target = target
	}

	receipt, err := s.tracker.Send(c.Request.Context(), call)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, receipt)
}

func (s *Server) handleCollect(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, badRequest(fmt.Errorf("milestone id: %w", err)))
		return
	}
	out, err := s.tracker.CollectMilestone(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) bindData(c *gin.Context) ([]byte, bool) {
	var req dataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, badRequest(err))
		return nil, false
	}
	raw, err := protocol.DecodeHex(req.Data)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return raw, true
}
