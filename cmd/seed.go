/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"referralhub/internal/bootstrap/logging"
	domainreferral "referralhub/internal/domain/referral"
	"referralhub/internal/errs"
	"referralhub/internal/ports"
	"referralhub/internal/usecase/referral"
)

// seedActor performs fixture writes with admin rights.
var seedActor = domainreferral.Actor{ID: "system-seed", Role: domainreferral.RoleAdmin}

type seedFile struct {
	Agents    []seedParty    `yaml:"agents"`
	Lenders   []seedParty    `yaml:"lenders"`
	Referrals []seedReferral `yaml:"referrals"`
}

type seedParty struct {
	ID     string `yaml:"id"`
	UserID string `yaml:"userId"`
	Name   string `yaml:"name"`
	Email  string `yaml:"email"`
	Phone  string `yaml:"phone"`
}

type seedReferral struct {
	BorrowerFirstName      string        `yaml:"borrowerFirstName"`
	BorrowerLastName       string        `yaml:"borrowerLastName"`
	BorrowerEmail          string        `yaml:"borrowerEmail"`
	BorrowerPhone          string        `yaml:"borrowerPhone"`
	PreApprovalAmountCents int64         `yaml:"preApprovalAmountCents"`
	AgentID                string        `yaml:"agentId"`
	LenderID               string        `yaml:"lenderId"`
	Statuses               []string      `yaml:"statuses"`
	Contract               *seedContract `yaml:"contract"`
}

type seedContract struct {
	Address                   string  `yaml:"address"`
	City                      string  `yaml:"city"`
	State                     string  `yaml:"state"`
	PostalCode                string  `yaml:"postalCode"`
	ContractPriceDollars      float64 `yaml:"contractPriceDollars"`
	AgentCommissionPercentage float64 `yaml:"agentCommissionPercentage"`
	ReferralFeePercentage     float64 `yaml:"referralFeePercentage"`
}

type seedResult struct {
	Agents    int
	Lenders   int
	Referrals int
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load directory records and sample referrals from a YAML fixture",
	RunE: withApp(func(cmd *cobra.Command, svc appServices) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		file, _ := cmd.Flags().GetString("file")
		raw, err := os.ReadFile(file)
		if err != nil {
			return errs.Wrapf(err, "read seed file %s", file)
		}
		fixture, err := parseSeedFile(raw)
		if err != nil {
			return err
		}

		if err := svc.App.InitSchema(ctx); err != nil {
			return errs.Wrap(err, "initialize schema")
		}

		result, err := applySeed(ctx, svc.Directory, svc.Referrals, fixture)
		if err != nil {
			logging.Error(ctx, "seed failed", slog.Any("err", errs.Loggable(err)))
			return err
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "seeded agents=%d lenders=%d referrals=%d\n", result.Agents, result.Lenders, result.Referrals); err != nil {
			return errs.Wrap(err, "write seed output")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().String("file", "configs/fixtures.yaml", "Path to the YAML fixture")
}

func parseSeedFile(raw []byte) (seedFile, error) {
	var fixture seedFile
	if err := yaml.Unmarshal(raw, &fixture); err != nil {
		return seedFile{}, errs.Wrap(err, "decode seed file")
	}

	for i, p := range fixture.Agents {
		if strings.TrimSpace(p.ID) == "" {
			return seedFile{}, fmt.Errorf("agents[%d]: id is required", i)
		}
	}
	for i, p := range fixture.Lenders {
		if strings.TrimSpace(p.ID) == "" {
			return seedFile{}, fmt.Errorf("lenders[%d]: id is required", i)
		}
	}
	for i, r := range fixture.Referrals {
		for _, raw := range r.Statuses {
			status, err := domainreferral.ParseStatus(raw)
			if err != nil {
				return seedFile{}, fmt.Errorf("referrals[%d]: %w", i, err)
			}
			if status == domainreferral.StatusUnderContract && r.Contract == nil {
				return seedFile{}, fmt.Errorf("referrals[%d]: contract is required to reach %s", i, status)
			}
		}
	}
	return fixture, nil
}

type seedReferralService interface {
	CreateReferral(ctx context.Context, input referral.CreateReferralInput) (domainreferral.Referral, error)
	TransitionStatus(ctx context.Context, input referral.TransitionStatusInput) (referral.StatusSnapshot, error)
}

func applySeed(ctx context.Context, directory ports.DirectoryRepository, svc seedReferralService, fixture seedFile) (seedResult, error) {
	var result seedResult

	for _, p := range fixture.Agents {
		if err := directory.UpsertAgent(ctx, p.party()); err != nil {
			return result, errs.Wrapf(err, "upsert agent %s", p.ID)
		}
		result.Agents++
	}
	for _, p := range fixture.Lenders {
		if err := directory.UpsertLender(ctx, p.party()); err != nil {
			return result, errs.Wrapf(err, "upsert lender %s", p.ID)
		}
		result.Lenders++
	}

	for i, r := range fixture.Referrals {
		created, err := svc.CreateReferral(ctx, referral.CreateReferralInput{
			Intake: domainreferral.Intake{
				BorrowerFirstName:      r.BorrowerFirstName,
				BorrowerLastName:       r.BorrowerLastName,
				BorrowerEmail:          r.BorrowerEmail,
				BorrowerPhone:          r.BorrowerPhone,
				PreApprovalAmountCents: r.PreApprovalAmountCents,
				AgentID:                r.AgentID,
				LenderID:               r.LenderID,
			},
			Actor: seedActor,
		})
		if err != nil {
			return result, errs.Wrapf(err, "create referral %d", i)
		}

		for _, status := range r.Statuses {
			input := referral.TransitionStatusInput{
				ReferralID: created.ID,
				Status:     status,
				Actor:      seedActor,
			}
			if r.Contract != nil {
				input.ContractDetails = r.Contract.details()
			}
			if _, err := svc.TransitionStatus(ctx, input); err != nil {
				return result, errs.Wrapf(err, "move referral %s to %s", created.ID, status)
			}
		}
		result.Referrals++
	}
	return result, nil
}

func (p seedParty) party() domainreferral.Party {
	return domainreferral.Party{
		ID:     strings.TrimSpace(p.ID),
		UserID: strings.TrimSpace(p.UserID),
		Name:   strings.TrimSpace(p.Name),
		Email:  strings.TrimSpace(p.Email),
		Phone:  strings.TrimSpace(p.Phone),
	}
}

func (c seedContract) details() *domainreferral.ContractDetails {
	return &domainreferral.ContractDetails{
		PropertyAddress:           c.Address,
		PropertyCity:              c.City,
		PropertyState:             c.State,
		PropertyPostalCode:        c.PostalCode,
		ContractPriceDollars:      c.ContractPriceDollars,
		AgentCommissionPercentage: c.AgentCommissionPercentage,
		ReferralFeePercentage:     c.ReferralFeePercentage,
	}
}
