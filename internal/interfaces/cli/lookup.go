package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/openregulatory/licensure/pkg/errors"
	ltypes "github.com/openregulatory/licensure/pkg/types/licensing"
)

// newLookupCmd builds `licensure lookup <license-id>`: fetch one license and
// print its evaluated status block.
func newLookupCmd(deps *Dependencies, opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <license-id>",
		Short: "Look up a license and its evaluated status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asOf, err := parseAsOfFlag(opts)
			if err != nil {
				return err
			}

			dto, err := deps.Licenses.Get(cmd.Context(), args[0], asOf)
			if err != nil {
				return err
			}

			if opts.OutputFormat == "json" {
				return printResult(cmd, opts, dto)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderLicense(dto))
			return nil
		},
	}
}

func parseAsOfFlag(opts *RootOptions) (ltypes.Date, error) {
	asOf, err := ltypes.ParseDate(opts.AsOf)
	if err != nil {
		return ltypes.Date{}, errors.New(errors.ErrCodeInvalidDate, "as-of must be formatted YYYY-MM-DD").WithCause(err)
	}
	return asOf, nil
}

func renderLicense(dto *ltypes.LicenseDTO) string {
	rows := [][]string{
		{"ID", dto.ID},
		{"Licensee", dto.LicenseeID},
		{"Kind", licenseKind(dto.IsPrivilege)},
		{"Jurisdiction", dto.Jurisdiction},
		{"Type", dto.LicenseType},
		{"Status", string(dto.Status)},
		{"Eligibility", string(dto.Eligibility)},
		{"Expires", dto.ExpireDate.String()},
		{"As of", dto.Derived.AsOf.String()},
		{"Expired", strconv.FormatBool(dto.Derived.Expired)},
		{"Encumbered", strconv.FormatBool(dto.Derived.Encumbered)},
		{"Compact eligible", strconv.FormatBool(dto.Derived.CompactEligible)},
	}
	return formatTable([]string{"Field", "Value"}, rows)
}

func licenseKind(isPrivilege bool) string {
	if isPrivilege {
		return "privilege"
	}
	return "license"
}
