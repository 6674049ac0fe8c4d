package main

import (
	"os"

	"github.com/andresuchdata/stockplanner/pkg/logger"
	"github.com/urfave/cli/v2"
)

func inputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "stock",
			Usage:    "Stock workbook (.xlsx path or s3://bucket/key)",
			Required: true,
			EnvVars:  []string{"PLANNER_STOCK"},
		},
		&cli.StringFlag{
			Name:    "stock-sheet",
			Usage:   "Sheet to read from the stock workbook (default: first sheet)",
			EnvVars: []string{"PLANNER_STOCK_SHEET"},
		},
		&cli.StringFlag{
			Name:    "items",
			Usage:   "Optional items master workbook with ID and Description columns",
			EnvVars: []string{"PLANNER_ITEMS"},
		},
		&cli.StringFlag{
			Name:  "items-sheet",
			Usage: "Sheet to read from the items workbook (default: first sheet)",
		},
	}
}

// configFlags override the configured plan parameters.
func configFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "profile",
			Usage:   "TOML plan profile overriding the configured parameters",
			EnvVars: []string{"PLANNER_PROFILE"},
		},
		&cli.StringFlag{
			Name:  "start-date",
			Usage: "Plan window start date (YYYY-MM-DD)",
		},
		&cli.StringSliceFlag{
			Name:  "final-qty",
			Usage: "Final quantity override as ITEM=QTY (repeatable)",
		},
	}
}

func exportFlag() cli.Flag {
	return &cli.StringSliceFlag{
		Name:  "export",
		Usage: "Export kinds to write (full, machines, report-xlsx, report-pdf, product-alert, customer-alert)",
		Value: cli.NewStringSlice("full"),
	}
}

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "out",
			Usage:   "Directory for written files (default: APP_OUTPUT_DIR)",
			EnvVars: []string{"PLANNER_OUT"},
		},
		&cli.BoolFlag{
			Name:  "publish",
			Usage: "Also upload the exports to the configured object storage",
		},
	}
}

func flags(groups ...[]cli.Flag) []cli.Flag {
	var out []cli.Flag
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func main() {
	app := &cli.App{
		Name:  "planner",
		Usage: "Build production plans and reports from stock workbooks",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
				Value:   "info",
			},
		},
		Before: func(c *cli.Context) error {
			logger.SetLevel(c.String("log-level"))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "plan",
				Usage: "Run the planner and write the full workbook plus any extra exports",
				Flags:  flags(inputFlags(), configFlags(), outputFlags(), []cli.Flag{exportFlag()}),
				Action: runPlan,
			},
			{
				Name:  "replan",
				Usage: "Re-plan from an edited Master sheet, keeping the overrides typed into it",
				Flags: flags(configFlags(), outputFlags(), []cli.Flag{
					&cli.StringFlag{
						Name:     "master",
						Usage:    "Workbook holding the Master sheet (.xlsx path or s3://bucket/key)",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "master-sheet",
						Usage: "Sheet holding the Master table",
						Value: "Master",
					},
					exportFlag(),
				}),
				Action: runReplan,
			},
			{
				Name:   "report",
				Usage:  "Write the management report workbook and PDF summary",
				Flags:  flags(inputFlags(), configFlags(), outputFlags()),
				Action: runReport,
			},
			{
				Name:  "machines",
				Usage: "Write the all-machines plan and one workbook per machine",
				Flags: flags(inputFlags(), configFlags(), outputFlags(), []cli.Flag{
					&cli.StringFlag{
						Name:  "machine",
						Usage: "Only write the workbook for this machine",
					},
				}),
				Action: runMachines,
			},
			{
				Name:  "fill-template",
				Usage: "Fill a customer order template with the final quantities",
				Flags: flags(inputFlags(), configFlags(), outputFlags(), []cli.Flag{
					&cli.StringFlag{
						Name:     "template",
						Usage:    "Customer order template workbook",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "template-sheet",
						Usage: "Template sheet name",
						Value: "Clinet Orders",
					},
					&cli.IntFlag{
						Name:  "header-row",
						Usage: "Row holding the template headers",
						Value: 2,
					},
					&cli.IntFlag{
						Name:  "start-row",
						Usage: "First data row of the template",
						Value: 3,
					},
					&cli.StringFlag{
						Name:  "item-header",
						Usage: "Header of the item number column",
						Value: "Item No.",
					},
					&cli.StringFlag{
						Name:  "qty-header",
						Usage: "Header of the quantity column",
						Value: "Qty",
					},
				}),
				Action: runFillTemplate,
			},
			{
				Name:  "batch",
				Usage: "Plan several stock workbooks concurrently",
				Flags: flags(outputFlags(), []cli.Flag{
					&cli.StringSliceFlag{
						Name:     "stock",
						Usage:    "Stock workbook (repeatable, .xlsx path or s3://bucket/key)",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "items",
						Usage: "Optional items master shared by every workbook",
					},
					&cli.StringFlag{
						Name:  "profile",
						Usage: "TOML plan profile overriding the configured parameters",
					},
					&cli.IntFlag{
						Name:    "workers",
						Usage:   "Number of concurrent workers (default: BATCH_WORKERS)",
						EnvVars: []string{"PIPELINE_WORKERS"},
					},
				}),
				Action: runBatch,
			},
			{
				Name:  "cache",
				Usage: "Manage cached planning results",
				Subcommands: []*cli.Command{
					{
						Name:   "clear",
						Usage:  "Drop every cached planning result",
						Action: runCacheClear,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("planner failed")
	}
}
