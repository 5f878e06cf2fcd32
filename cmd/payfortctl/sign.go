// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zeitlabs/payfort/internal/config"
	"github.com/zeitlabs/payfort/internal/payfort"
)

type configLoader func() (config.AppConfig, error)

// parseParams turns key=value arguments into a parameter map. A repeated
// key keeps its last value.
func parseParams(args []string) (map[string]string, error) {
	params := make(map[string]string, len(args))
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("argument %q is not key=value", arg)
		}
		params[k] = v
	}
	return params, nil
}

type phraseFlags struct {
	phrase   string
	method   string
	response bool
}

func (f *phraseFlags) register(cmd *cobra.Command, response bool) {
	cmd.Flags().StringVar(&f.phrase, "phrase", "", "SHA phrase, defaults to the configured one")
	cmd.Flags().StringVar(&f.method, "method", "", "SHA method, defaults to the configured one")
	cmd.Flags().BoolVar(&f.response, "response", response, "use the response phrase instead of the request phrase")
}

func (f *phraseFlags) resolve(load configLoader) (phrase, method string, err error) {
	phrase, method = f.phrase, f.method
	if phrase != "" && method != "" {
		return phrase, method, nil
	}
	cfg, err := load()
	if err != nil {
		return "", "", err
	}
	if phrase == "" {
		phrase = cfg.PayFort.RequestSHAPhrase
		if f.response {
			phrase = cfg.PayFort.ResponseSHAPhrase
		}
	}
	if method == "" {
		method = cfg.PayFort.SHAMethod
	}
	return phrase, method, nil
}

func signCmd(load configLoader) *cobra.Command {
	var flags phraseFlags
	cmd := &cobra.Command{
		Use:   "sign key=value...",
		Short: "Compute the PayFort signature of a parameter set",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseParams(args)
			if err != nil {
				return err
			}
			delete(params, payfort.SignatureField)
			phrase, method, err := flags.resolve(load)
			if err != nil {
				return err
			}
			sig, err := payfort.Signature(phrase, method, params)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sig)
			return nil
		},
	}
	flags.register(cmd, false)
	return cmd
}

func verifyCmd(load configLoader) *cobra.Command {
	var flags phraseFlags
	cmd := &cobra.Command{
		Use:   "verify key=value...",
		Short: "Check the signature carried in a gateway response",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := parseParams(args)
			if err != nil {
				return err
			}
			phrase, method, err := flags.resolve(load)
			if err != nil {
				return err
			}
			if err := payfort.VerifySignature(phrase, method, data); err != nil {
				return err
			}
			if _, err := payfort.VerifyResponseFormat(data); err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "signature valid, format invalid: %v\n", err)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "signature valid")
			return nil
		},
	}
	flags.register(cmd, true)
	return cmd
}
