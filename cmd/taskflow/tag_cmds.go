package main

import (
	"context"
	"fmt"
	"strings"
	"taskflow/internal/app"
	"taskflow/internal/service"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func tagCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Управление тегами",
	}

	var color string
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Создать тег",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			userID, err := e.requireUser(ctx)
			if err != nil {
				return err
			}
			tag, err := e.svc.Tags.CreateTag(ctx, userID, args[0], color)
			if err != nil {
				return err
			}
			fmt.Println(styleOK.Render("✓"), "тег создан:", renderTag(tag.Name, tag.Color))
			return nil
		},
	}
	add.Flags().StringVar(&color, "color", "", "цвет #RRGGBB")

	rm := &cobra.Command{
		Use:   "rm <name|id>",
		Short: "Удалить тег, задачи остаются",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			userID, err := e.requireUser(ctx)
			if err != nil {
				return err
			}
			ids, err := resolveTags(ctx, e.svc, userID, args)
			if err != nil {
				return err
			}
			if err := e.svc.Tags.DeleteTag(ctx, userID, ids[0]); err != nil {
				return err
			}
			fmt.Println(styleOK.Render("✓"), "тег удалён")
			return nil
		},
	}

	ls := &cobra.Command{
		Use:   "ls",
		Short: "Список тегов",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			userID, err := e.requireUser(ctx)
			if err != nil {
				return err
			}
			tags, err := e.svc.Tags.GetUserTags(ctx, userID)
			if err != nil {
				return err
			}
			if len(tags) == 0 {
				fmt.Println(styleDim.Render("тегов нет"))
				return nil
			}
			for _, t := range tags {
				fmt.Println(renderTag(t.Name, t.Color), styleDim.Render(t.ID.String()[:8]))
			}
			return nil
		},
	}

	cmd.AddCommand(add, rm, ls)
	return cmd
}

// resolveTags находит теги по имени без учёта регистра или по id
func resolveTags(ctx context.Context, svc app.Services, userID uuid.UUID, refs []string) ([]uuid.UUID, error) {
	tags, err := svc.Tags.GetUserTags(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(refs))
	for _, ref := range refs {
		found := uuid.Nil
		for _, t := range tags {
			if strings.EqualFold(t.Name, ref) || t.ID.String() == ref {
				found = t.ID
				break
			}
		}
		if found == uuid.Nil {
			return nil, service.NewNotFound("тег", ref)
		}
		ids = append(ids, found)
	}
	return ids, nil
}

func renderTag(name, color string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render("#" + name)
}
