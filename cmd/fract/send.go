package main

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pthm/fract"
	"github.com/pthm/fract/lib/codec"
)

func newSendCmd(a *app) *cobra.Command {
	var (
		docPath string
		method  string
		data    []string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "send URL",
		Short: "Request an envelope from a server and apply it",
		Long: `Sends a fract request to URL and applies the returned envelope to the
document. Relative URLs are resolved against base_url from the config.`,
		Example: `  fract send http://localhost:8080/cart/add --doc page.html -X POST -d id=3
  FRACT_BASE_URL=http://localhost:8080 fract send /todos --doc page.html`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.loadDocument(docPath)
			if err != nil {
				return err
			}
			applier, err := a.newApplier(doc)
			if err != nil {
				return err
			}

			opts := []fract.ClientOption{
				fract.WithHTTPClient(&http.Client{Timeout: timeout}),
				fract.WithBaseURL(a.cfg.BaseURL),
				fract.WithAccept(a.cfg.Accept),
			}
			for k, v := range a.cfg.Headers {
				opts = append(opts, fract.WithHeader(k, v))
			}
			if a.cfg.SigningKey != "" {
				signer, err := codec.NewSigner([]byte(a.cfg.SigningKey))
				if err != nil {
					return err
				}
				opts = append(opts, fract.WithVerifier(signer))
			}
			client := fract.NewClient(applier, opts...)

			req, err := requestOptions(method, data)
			if err != nil {
				return err
			}
			reply, err := client.Send(cmd.Context(), args[0], req)
			if err != nil {
				return err
			}
			if !reply.OK() {
				return fmt.Errorf("server answered %d", reply.StatusCode)
			}
			a.logger.Debug("envelope applied",
				zap.Int("status", reply.StatusCode),
				zap.Int("mutated", reply.Outcome.Mutated),
				zap.Int("failed", reply.Outcome.Failed),
			)
			return a.finish(cmd, doc, reply.Outcome, reply.ApplyErr)
		},
	}

	cmd.Flags().StringVar(&docPath, "doc", "", "HTML document to update")
	cmd.Flags().StringVarP(&method, "request", "X", "", "HTTP method (default GET, POST when -d is given)")
	cmd.Flags().StringArrayVarP(&data, "data", "d", nil, "form field as key=value, repeatable")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "request timeout")
	_ = cmd.MarkFlagRequired("doc")
	return cmd
}

// requestOptions turns -X and -d into request options. Fields go in the
// query string for GET and in a urlencoded body otherwise.
func requestOptions(method string, data []string) (*fract.RequestOptions, error) {
	values := url.Values{}
	for _, kv := range data {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid -d %q, want key=value", kv)
		}
		values.Add(k, v)
	}

	method = strings.ToUpper(method)
	if method == "" {
		method = http.MethodGet
		if len(values) > 0 {
			method = http.MethodPost
		}
	}

	opts := &fract.RequestOptions{Method: method}
	if len(values) == 0 {
		return opts, nil
	}
	if method == http.MethodGet || method == http.MethodHead {
		return nil, fmt.Errorf("-d needs a method with a body, got %s", method)
	}
	opts.Body = strings.NewReader(values.Encode())
	opts.ContentType = "application/x-www-form-urlencoded"
	return opts, nil
}
