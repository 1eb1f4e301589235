package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func signupCmd(e *env) *cobra.Command {
	var email, password, name string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Зарегистрироваться и войти",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := e.core(cmd.Context())
			if err != nil {
				return err
			}
			if password == "" {
				password = prompt("Пароль: ")
			}
			session, err := svc.Provider.SignUp(cmd.Context(), email, password, name)
			if err != nil {
				return err
			}
			if err := e.login(session); err != nil {
				return err
			}
			fmt.Println(styleOK.Render("✓"), "аккаунт создан:", session.User.Email)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "пароль (без флага спросит)")
	cmd.Flags().StringVarP(&name, "name", "n", "", "полное имя")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func loginCmd(e *env) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Войти по email и паролю",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := e.core(cmd.Context())
			if err != nil {
				return err
			}
			if password == "" {
				password = prompt("Пароль: ")
			}
			session, err := svc.Provider.SignIn(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			if err := e.login(session); err != nil {
				return err
			}
			fmt.Println(styleOK.Render("✓"), "вход выполнен:", session.User.Email)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "пароль (без флага спросит)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func logoutCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Выйти и удалить сохранённую сессию",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSession()
			if err != nil {
				return err
			}
			if s != nil {
				svc, err := e.core(cmd.Context())
				if err != nil {
					return err
				}
				if err := svc.Provider.SignOut(cmd.Context(), s.AccessToken, s.RefreshToken); err != nil {
					return err
				}
			}
			e.holder.Clear()
			if err := removeSession(); err != nil {
				return err
			}
			fmt.Println(styleOK.Render("✓"), "сессия завершена")
			return nil
		},
	}
}

func prompt(label string) string {
	fmt.Fprint(os.Stderr, label)
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	return strings.TrimSpace(line)
}
