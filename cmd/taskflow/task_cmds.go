package main

import (
	"context"
	"fmt"
	"strings"
	"taskflow/internal/app"
	"taskflow/internal/models/task"
	"taskflow/internal/service"
	"taskflow/internal/views"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func addCmd(e *env) *cobra.Command {
	var desc, priority, due, at string
	var tags []string
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Создать задачу",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			userID, err := e.requireUser(ctx)
			if err != nil {
				return err
			}

			title := strings.Join(args, " ")
			patch := task.Patch{Title: &title}
			if desc != "" {
				patch.Description = &desc
			}
			if priority != "" {
				p := task.Priority(priority)
				patch.Priority = &p
			}
			if due != "" {
				patch.DueDate = &due
			}
			if at != "" {
				patch.DueTime = &at
			}

			created, err := e.svc.Tasks.CreateTask(ctx, userID, patch)
			if err != nil {
				return err
			}
			if len(tags) > 0 {
				ids, err := resolveTags(ctx, e.svc, userID, tags)
				if err != nil {
					return err
				}
				if created, err = e.svc.Tasks.AddTagsToTask(ctx, userID, created.ID, ids); err != nil {
					return err
				}
			}
			fmt.Println(styleOK.Render("✓"), "создана", renderTask(created, e.today()))
			return nil
		},
	}
	cmd.Flags().StringVarP(&desc, "desc", "d", "", "описание")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "low | medium | high")
	cmd.Flags().StringVar(&due, "due", "", "срок YYYY-MM-DD")
	cmd.Flags().StringVar(&at, "time", "", "время HH:MM")
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "теги по имени")
	return cmd
}

func listCmd(e *env) *cobra.Command {
	var view, search string
	var statuses, priorities, tags []string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Показать задачи",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			userID, err := e.requireUser(ctx)
			if err != nil {
				return err
			}

			var tasks []*task.Task
			switch view {
			case "all", "":
				tasks, err = e.svc.Tasks.GetAllTasks(ctx, userID)
			case "today":
				tasks, err = e.svc.Tasks.GetTodaysTasks(ctx, userID)
			case "upcoming":
				tasks, err = e.svc.Tasks.GetUpcomingTasks(ctx, userID)
			case "completed":
				tasks, err = e.svc.Tasks.GetCompletedTasks(ctx, userID)
			case "trash":
				tasks, err = e.svc.Tasks.GetTrashedTasks(ctx, userID)
			default:
				return service.NewValidationError("view", fmt.Sprintf("неизвестный вид %q", view))
			}
			tasks = service.Degrade(tasks, err, "list_"+view)

			filters := []views.Filter{}
			for kind, values := range map[views.FilterKind][]string{
				views.FilterStatus:   statuses,
				views.FilterPriority: priorities,
				views.FilterTag:      tags,
			} {
				for _, v := range values {
					f, err := views.ParseFilter(string(kind), v)
					if err != nil {
						return service.NewValidationError(string(kind), err.Error())
					}
					filters = append(filters, f)
				}
			}
			tasks = views.Apply(tasks, views.NewFilterSet(filters...), search)

			if len(tasks) == 0 {
				fmt.Println(styleDim.Render("нет задач"))
				return nil
			}
			today := e.today()
			for _, t := range tasks {
				fmt.Println(renderTask(t, today))
			}
			fmt.Println(styleDim.Render(fmt.Sprintf("всего: %d", len(tasks))))
			return nil
		},
	}
	cmd.Flags().StringVar(&view, "view", "all", "today | upcoming | completed | trash | all")
	cmd.Flags().StringVarP(&search, "search", "s", "", "поиск по тексту")
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "фильтр по статусу")
	cmd.Flags().StringSliceVar(&priorities, "priority", nil, "фильтр по приоритету")
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "фильтр по тегу")
	return cmd
}

func doneCmd(e *env) *cobra.Command {
	return taskActionCmd(e, "done <id>", "Переключить выполнение задачи", false,
		func(ctx context.Context, userID, id uuid.UUID, _ []string) (*task.Task, error) {
			return e.svc.Tasks.ToggleComplete(ctx, userID, id)
		})
}

func statusCmd(e *env) *cobra.Command {
	cmd := taskActionCmd(e, "status <id> <todo|in_progress|completed>", "Сменить статус задачи", false,
		func(ctx context.Context, userID, id uuid.UUID, args []string) (*task.Task, error) {
			return e.svc.Tasks.SetStatus(ctx, userID, id, task.Status(args[0]))
		})
	cmd.Args = cobra.ExactArgs(2)
	return cmd
}

func trashCmd(e *env) *cobra.Command {
	return taskActionCmd(e, "trash <id>", "Переместить задачу в корзину", false,
		func(ctx context.Context, userID, id uuid.UUID, _ []string) (*task.Task, error) {
			return e.svc.Tasks.MoveToTrash(ctx, userID, id)
		})
}

func restoreCmd(e *env) *cobra.Command {
	return taskActionCmd(e, "restore <id>", "Восстановить задачу из корзины", true,
		func(ctx context.Context, userID, id uuid.UUID, _ []string) (*task.Task, error) {
			return e.svc.Tasks.RestoreFromTrash(ctx, userID, id)
		})
}

func purgeCmd(e *env) *cobra.Command {
	var expired bool
	cmd := &cobra.Command{
		Use:   "purge [id]",
		Short: "Удалить задачу навсегда или очистить просроченную корзину",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if expired {
				svc, err := e.core(ctx)
				if err != nil {
					return err
				}
				if svc.Trash == nil || !svc.Trash.Enabled() {
					return service.NewConfigurationError()
				}
				n, err := svc.Trash.Purge(ctx)
				if err != nil {
					return err
				}
				fmt.Println(styleOK.Render("✓"), "удалено из корзины:", n)
				return nil
			}

			if len(args) == 0 {
				return service.NewValidationError("id", "укажите задачу или --expired")
			}
			userID, err := e.requireUser(ctx)
			if err != nil {
				return err
			}
			id, err := resolveTask(ctx, e.svc, userID, args[0], true)
			if err != nil {
				return err
			}
			if err := e.svc.Tasks.PermanentlyDeleteTask(ctx, userID, id); err != nil {
				return err
			}
			fmt.Println(styleOK.Render("✓"), "задача удалена навсегда")
			return nil
		},
	}
	cmd.Flags().BoolVar(&expired, "expired", false, "удалить всё, что лежит в корзине дольше trash.retention")
	return cmd
}

func taskActionCmd(e *env, use, short string, inTrash bool, act func(ctx context.Context, userID, id uuid.UUID, rest []string) (*task.Task, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			userID, err := e.requireUser(ctx)
			if err != nil {
				return err
			}
			id, err := resolveTask(ctx, e.svc, userID, args[0], inTrash)
			if err != nil {
				return err
			}
			t, err := act(ctx, userID, id, args[1:])
			if err != nil {
				return err
			}
			fmt.Println(styleOK.Render("✓"), renderTask(t, e.today()))
			return nil
		},
	}
}

// resolveTask принимает полный id или его однозначный префикс
func resolveTask(ctx context.Context, svc app.Services, userID uuid.UUID, ref string, inTrash bool) (uuid.UUID, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return id, nil
	}

	tasks, err := svc.Tasks.GetAllTasks(ctx, userID)
	if err != nil {
		return uuid.Nil, err
	}
	if inTrash {
		trashed, err := svc.Tasks.GetTrashedTasks(ctx, userID)
		if err != nil {
			return uuid.Nil, err
		}
		tasks = append(tasks, trashed...)
	}

	found := uuid.Nil
	for _, t := range tasks {
		if strings.HasPrefix(t.ID.String(), strings.ToLower(ref)) {
			if found != uuid.Nil {
				return uuid.Nil, service.NewValidationError("id", fmt.Sprintf("префикс %q неоднозначен", ref))
			}
			found = t.ID
		}
	}
	if found == uuid.Nil {
		return uuid.Nil, service.NewNotFound("задача", ref)
	}
	return found, nil
}

func (e *env) today() task.Date {
	loc, err := e.cfg.Location()
	if err != nil {
		return task.DateOf(timeNow())
	}
	return task.DateOf(timeNow().In(loc))
}
