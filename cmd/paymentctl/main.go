package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// paymentctl talks to the running service over its HTTP API. It exists
// so operators do not have to hand-craft curl invocations with tokens.

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

type paymentRow struct {
	ID         int64  `json:"id"`
	CardNumber string `json:"card_number"`
	Amount     string `json:"amount"`
	Timestamp  string `json:"timestamp"`
	Name       string `json:"name"`
	IsDeleted  bool   `json:"is_deleted"`
}

func main() {
	var gateway string
	var username string

	rootCmd := &cobra.Command{Use: "paymentctl"}
	rootCmd.PersistentFlags().StringVar(&gateway, "gateway", "http://localhost:8080", "Base URL of the payment service")
	rootCmd.PersistentFlags().StringVar(&username, "username", "admin", "Login used to obtain a token")

	client := &apiClient{}
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		return client.init(gateway, username)
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Accept a new payment record",
		RunE: func(cmd *cobra.Command, _ []string) error {
			card, _ := cmd.Flags().GetString("card")
			amount, _ := cmd.Flags().GetString("amount")
			name, _ := cmd.Flags().GetString("name")

			body := map[string]any{"card_number": card, "amount": json.Number(amount), "name": name}
			env, err := client.do(http.MethodPost, "/api/v1/payments", body)
			if err != nil {
				return err
			}

			var p paymentRow
			if err := json.Unmarshal(env.Data, &p); err != nil {
				return err
			}
			fmt.Printf("%s\ncreated payment %d\n", env.Message, p.ID)
			return nil
		},
	}
	createCmd.Flags().String("card", "", "Card number")
	createCmd.Flags().String("amount", "", "Payment amount")
	createCmd.Flags().String("name", "", "Payment name")
	for _, f := range []string{"card", "amount", "name"} {
		_ = createCmd.MarkFlagRequired(f)
	}

	stopCmd := &cobra.Command{
		Use:   "stop [id]",
		Short: "Stop (soft-delete) a payment within its window",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			env, err := client.do(http.MethodDelete, "/api/v1/payments/"+args[0], nil)
			if err != nil {
				return err
			}
			fmt.Println(env.Message)
			return nil
		},
	}

	listCmd := &cobra.Command{
		Use:   "list [cardNumber]",
		Short: "List every payment for a card, stopped ones included",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return listPayments(client, "/api/v1/payments/card/"+args[0])
		},
	}

	activeCmd := &cobra.Command{
		Use:   "active [cardNumber]",
		Short: "List the card's non-deleted payments",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return listPayments(client, "/api/v1/payments/active/"+args[0])
		},
	}

	rootCmd.AddCommand(createCmd, stopCmd, listCmd, activeCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func listPayments(client *apiClient, path string) error {
	env, err := client.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}

	var rows []paymentRow
	if err := json.Unmarshal(env.Data, &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println(env.Message)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCARD\tAMOUNT\tACCEPTED\tNAME\tSTOPPED")
	for _, p := range rows {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%v\n", p.ID, p.CardNumber, p.Amount, p.Timestamp, p.Name, p.IsDeleted)
	}
	return w.Flush()
}

type apiClient struct {
	gateway string
	token   string
}

func (c *apiClient) init(gateway, username string) error {
	c.gateway = gateway

	payload, _ := json.Marshal(map[string]string{"username": username})
	resp, err := http.Post(gateway+"/login", "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login failed with status %s", resp.Status)
	}

	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	c.token = body.Token
	return nil
}

func (c *apiClient) do(method, path string, body any) (*envelope, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, c.gateway+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("%s: %s", resp.Status, apiErr.Error)
		}
		return nil, fmt.Errorf("request failed with status %s", resp.Status)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	return &env, nil
}
