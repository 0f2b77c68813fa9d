package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"

	"github.com/danmuck/milestonectl/internal/ledger"
	"github.com/danmuck/milestonectl/internal/milestone"
	"github.com/danmuck/milestonectl/internal/protocol"
	"github.com/danmuck/milestonectl/internal/protocol/directive"
	"github.com/danmuck/milestonectl/internal/protocol/rlp"
	"github.com/danmuck/milestonectl/internal/vault"
)

func runDecode(_ context.Context, e *env, args []string) error {
	fs := newFlagSet("decode", e)
	data := fs.String("data", "", "hex blob (default: read --file or stdin)")
	file := fs.StringP("file", "f", "", "file holding the hex blob")
	depth := fs.Int("max-depth", rlp.DefaultLimits().MaxDepth, "maximum RLP nesting depth")
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}

	in, err := readInput(e, *data, *file)
	if err != nil {
		return err
	}
	raw, err := protocol.DecodeHex(in)
	if err != nil {
		return err
	}
	ms, err := milestone.DecodeWithLimits(raw, rlp.Limits{MaxDepth: *depth})
	if err != nil {
		return err
	}
	return writeJSON(e.stdout, ms)
}

func runEncode(_ context.Context, e *env, args []string) error {
	fs := newFlagSet("encode", e)
	file := fs.StringP("file", "f", "", "JSON file with a milestone list (default: stdin)")
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}

	in, err := readInput(e, "", *file)
	if err != nil {
		return err
	}
	ms, err := milestone.ParseJSON([]byte(in))
	if err != nil {
		return err
	}
	out, err := milestone.EncodeHex(ms, vault.Encoder{})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(e.stdout, out)
	return err
}

type directiveOutput struct {
	Kind     directive.Kind `json:"kind"`
	Selector string         `json:"selector"`
	*milestone.Payment
}

func runDirective(_ context.Context, e *env, args []string) error {
	fs := newFlagSet("directive", e)
	data := fs.String("data", "", "payData hex (default: read --file or stdin)")
	file := fs.StringP("file", "f", "", "file holding the payData hex")
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}

	in, err := readInput(e, *data, *file)
	if err != nil {
		return err
	}
	raw, err := protocol.DecodeHex(in)
	if err != nil {
		return err
	}
	d, err := directive.Decode(raw)
	if err != nil {
		return err
	}
	out := directiveOutput{Kind: directive.Identify(raw)}
	if len(raw) >= directive.SelectorLen {
		out.Selector = protocol.EncodeHex(raw[:directive.SelectorLen])
	}
	if pay, ok := d.(directive.AuthorizePayment); ok {
		out.Payment = &milestone.Payment{
			PayDescription: pay.Description,
			PayRecipient:   milestone.Address(pay.Recipient),
			PayValue:       new(big.Int).Set(pay.Value),
			PayDelay:       pay.Delay,
		}
	}
	return writeJSON(e.stdout, out)
}

func runHash(_ context.Context, e *env, args []string) error {
	fs := newFlagSet("hash", e)
	data := fs.String("data", "", "hex blob (default: read --file or stdin)")
	file := fs.StringP("file", "f", "", "file holding the hex blob")
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}

	in, err := readInput(e, *data, *file)
	if err != nil {
		return err
	}
	raw, err := protocol.DecodeHex(in)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(e.stdout, ledger.ProposalHash(raw))
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
