package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"curator/internal/catalog"
	"curator/internal/config"
	"curator/internal/descriptor"
	"curator/internal/library"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	var (
		historyLimit int
		output       string
	)

	cmd := &cobra.Command{
		Use:   "show NAME|ID",
		Short: "Show an entity's metadata and refresh history",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := validateOutput(output)
			if err != nil {
				return err
			}
			return ctx.withStore(func(_ *config.Config, store *catalog.Store) error {
				ref := strings.Join(args, " ")
				rec, err := store.Resolve(cmd.Context(), ref)
				if err != nil {
					return err
				}
				entity, err := rec.Entity()
				if err != nil {
					return err
				}

				descriptorPath, _ := descriptor.PathFor(entity)
				history, err := store.History(cmd.Context(), rec.ID, historyLimit)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if format != outputTable {
					return writeStructured(out, format, newEntityView(rec, descriptorPath, entity, history))
				}
				colorize := shouldColorize(out)
				fields := [][2]string{
					{"ID", rec.ID},
					{"Kind", string(rec.Kind)},
					{"Directory", rec.MetaLocation},
					{"Last refreshed", formatTimestamp(rec.LastRefreshed)},
				}
				if descriptorPath != "" {
					fields = append(fields, [2]string{"Descriptor", descriptorPath})
				}
				if person, ok := entity.(*library.Person); ok {
					fields = append(fields, personFields(person.Metadata())...)
				}
				fmt.Fprintln(out, renderFields(fields))

				if len(history) == 0 {
					fmt.Fprintln(out, "No refresh attempts recorded")
					return nil
				}
				rows := make([][]string, 0, len(history))
				for _, att := range history {
					rows = append(rows, []string{
						formatTimestamp(att.StartedAt),
						paint(att.Outcome, outcomeKind(att.Outcome), colorize),
						yesNo(att.Forced),
						att.Duration().String(),
						truncate(att.Error, 80),
					})
				}
				fmt.Fprintln(out, renderTable([]string{"Started", "Outcome", "Forced", "Took", "Error"}, rows, nil))
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&historyLimit, "history", 10, "Number of refresh attempts to list")
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "Output format: table, json, or yaml")
	return cmd
}

func personFields(md library.PersonMetadata) [][2]string {
	candidates := [][2]string{
		{"Name", md.Name},
		{"Sort name", md.SortName},
		{"Born", joinNonEmpty([]string{formatDate(md.BirthDate), md.PlaceOfBirth})},
		{"Died", formatDate(md.DeathDate)},
		{"Genres", strings.Join(md.Genres, ", ")},
		{"Tags", strings.Join(md.Tags, ", ")},
		{"IMDb", md.IMDbID},
		{"TMDb", md.TMDbID},
		{"Website", md.Website},
		{"Overview", truncate(md.Overview, 240)},
	}
	fields := make([][2]string, 0, len(candidates))
	for _, c := range candidates {
		if strings.TrimSpace(c[1]) != "" {
			fields = append(fields, c)
		}
	}
	return fields
}
