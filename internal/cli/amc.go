package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"amcdesk/internal/amc"
	"amcdesk/internal/listing"
	"amcdesk/internal/repo"
	"amcdesk/server"
)

var (
	amcStatus string
	amcOrg    string
)

var amcCmd = &cobra.Command{
	Use:   "amc",
	Short: "AMC contract reports",
}

var amcReportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print devices by AMC status, nearest end date first",
	Example: `  amcdesk amc report --status expiring_soon
  amcdesk amc report --status expired --organization 7b0c...`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		d, err := server.OpenDB(cfg, false)
		if err != nil {
			return err
		}
		if sqlDB, err := d.DB(); err == nil {
			defer sqlDB.Close()
		}
		return amcReport(cmd.Context(), cmd.OutOrStdout(), server.NewStores(cfg, d), amcStatus, amcOrg)
	},
}

func init() {
	amcReportCmd.Flags().StringVar(&amcStatus, "status", string(amc.ExpiringSoon), "expired|expiring_soon|active|no_amc, empty for all")
	amcReportCmd.Flags().StringVar(&amcOrg, "organization", "", "organization id")
	amcCmd.AddCommand(amcReportCmd)
}

// amcReport проходит по всем страницам вкладки AMC и печатает таблицу.
func amcReport(ctx context.Context, out io.Writer, stores *repo.Stores, status, organizationID string) error {
	f := repo.DeviceFilter{OrganizationID: organizationID}
	if status != "" {
		st, err := amc.ParseStatus(status)
		if err != nil {
			return err
		}
		f.AMCStatus = st
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DEVICE\tORGANIZATION\tAMC END\tSTATUS\tDAYS LEFT")
	total := 0
	for page := 1; ; page++ {
		env, err := stores.Devices.ListAMC(ctx, f, listing.Page{Page: page, PageSize: listing.MaxPageSize})
		if err != nil {
			return err
		}
		for _, d := range env.Data {
			end, days, st := "-", "-", string(amc.NoAMC)
			if d.AMCEndDate != nil {
				end = d.AMCEndDate.Format("2006-01-02")
			}
			if d.AMC != nil {
				st = string(d.AMC.Status)
				if d.AMC.DaysUntilExpiry != nil {
					days = fmt.Sprint(*d.AMC.DaysUntilExpiry)
				}
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", d.DeviceName, d.OrganizationName, end, st, days)
		}
		total += len(env.Data)
		if page >= env.TotalPages {
			break
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "%d device(s)\n", total)
	return err
}
