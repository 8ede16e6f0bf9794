package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	gameservice "github.com/Black-And-White-Club/tenpin-bot/app/modules/game/application"
	gamedomain "github.com/Black-And-White-Club/tenpin-bot/app/modules/game/domain"
	"github.com/Black-And-White-Club/tenpin-bot/pkg/jwt"
	"github.com/urfave/cli/v2"
)

func newApp() *cli.App {
	return &cli.App{
		Name:  "scorecard",
		Usage: "score ten-pin games offline",
		Commands: []*cli.Command{
			scoreCommand(),
			importCommand(),
			tokenCommand(),
		},
	}
}

var exportFlags = []cli.Flag{
	&cli.StringFlag{Name: "bowler", Usage: "bowler name shown on exports"},
	&cli.StringFlag{Name: "xlsx", Usage: "write the scorecard workbook to `FILE`"},
	&cli.StringFlag{Name: "chart", Usage: "write the running score chart to `FILE`"},
}

func scoreCommand() *cli.Command {
	return &cli.Command{
		Name:      "score",
		Usage:     "score frames given in bowling notation",
		ArgsUsage: "FRAME...  (e.g. X 9/ 72 7- 10,0)",
		Flags:     exportFlags,
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return cli.Exit("at least one frame is required", 2)
			}
			if c.NArg() > gamedomain.FramesPerGame {
				return cli.Exit(fmt.Sprintf("a game has at most %d frames", gamedomain.FramesPerGame), 2)
			}

			frames := make([][]*int, 0, c.NArg())
			for i, arg := range c.Args().Slice() {
				rolls, err := gameservice.ParseFrameNotation(arg, i == gamedomain.FramesPerGame-1)
				if err != nil {
					return fmt.Errorf("frame %d: %w", i+1, err)
				}
				frames = append(frames, rolls)
			}

			view, err := buildView(c.String("bowler"), frames)
			if err != nil {
				return err
			}
			return output(c, view)
		},
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "score an xlsx roll sheet",
		ArgsUsage: "FILE",
		Flags:     exportFlags,
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("exactly one roll sheet is required", 2)
			}
			data, err := os.ReadFile(c.Args().First())
			if err != nil {
				return fmt.Errorf("failed to read roll sheet: %w", err)
			}

			imported, err := gameservice.ImportFrames(data)
			if err != nil {
				return err
			}
			frames := make([][]*int, len(imported))
			for i, f := range imported {
				frames[i] = f.Rolls
			}

			view, err := buildView(c.String("bowler"), frames)
			if err != nil {
				return err
			}
			return output(c, view)
		},
	}
}

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "mint an API bearer token",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "secret", EnvVars: []string{"JWT_SECRET"}, Required: true},
			&cli.StringFlag{Name: "issuer", EnvVars: []string{"JWT_ISSUER"}, Value: "tenpin-bot"},
			&cli.StringFlag{Name: "subject", Value: "scorer"},
			&cli.StringFlag{Name: "role", Value: string(jwt.RoleScorer), Usage: "viewer, scorer or admin"},
			&cli.DurationFlag{Name: "ttl", Value: 24 * time.Hour},
		},
		Action: func(c *cli.Context) error {
			role := jwt.Role(c.String("role"))
			switch role {
			case jwt.RoleViewer, jwt.RoleScorer, jwt.RoleAdmin:
			default:
				return cli.Exit(fmt.Sprintf("unknown role %q", role), 2)
			}

			token, err := jwt.NewService(c.String("secret"), c.String("issuer")).
				GenerateToken(c.String("subject"), role, c.Duration("ttl"))
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, token)
			return nil
		},
	}
}

// buildView validates frames in order and scores them.
func buildView(bowler string, frames [][]*int) (*gameservice.ScoreCardView, error) {
	card := gamedomain.NewScoreCard()
	for i, rolls := range frames {
		f, err := gamedomain.NewFrameAt(i+1, rolls)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i+1, err)
		}
		card.AddFrame(f)
	}
	return &gameservice.ScoreCardView{
		Bowler:   bowler,
		Frames:   card.ShowScoreCard(),
		Total:    card.GameTotal(),
		Complete: card.IsComplete(),
	}, nil
}

func output(c *cli.Context, view *gameservice.ScoreCardView) error {
	if err := printScoreCard(c.App.Writer, view); err != nil {
		return err
	}

	if path := c.String("xlsx"); path != "" {
		data, err := gameservice.RenderScoreCardXLSX(view)
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write workbook: %w", err)
		}
	}
	if path := c.String("chart"); path != "" {
		data, err := gameservice.RenderScoreCardChart(view, gameservice.DefaultChartPalette())
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write chart: %w", err)
		}
	}
	return nil
}

func printScoreCard(w io.Writer, view *gameservice.ScoreCardView) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if view.Bowler != "" {
		fmt.Fprintf(tw, "Bowler:\t%s\n", view.Bowler)
	}
	fmt.Fprintf(tw, "Frames:\t%s\n", joinFrames(view))
	fmt.Fprintln(tw, "Frame\tRolls\tType\tScore")
	for _, row := range view.Frames {
		final := row.Number == gamedomain.FramesPerGame
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", row.Number, gameservice.FormatRolls(row.Rolls, final), row.Type, row.FrameScore)
	}
	status := "in progress"
	if view.Complete {
		status = "complete"
	}
	fmt.Fprintf(tw, "Total\t\t%s\t%d\n", status, view.Total)
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to print scorecard: %w", err)
	}
	return nil
}

// joinFrames renders frames back into notation, one token per frame.
func joinFrames(view *gameservice.ScoreCardView) string {
	parts := make([]string, len(view.Frames))
	for i, row := range view.Frames {
		parts[i] = gameservice.FormatRolls(row.Rolls, row.Number == gamedomain.FramesPerGame)
	}
	return strings.Join(parts, " ")
}
