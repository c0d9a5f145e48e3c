// rm.go — команда rm: удаление объекта по ключу.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newRmCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <key>",
		Short: "Удалить объект из хранилища (отсутствующий объект — не ошибка)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(v)
			if err != nil {
				return err
			}
			client, err := newClient(v, logger)
			if err != nil {
				return err
			}
			if err := client.DeleteObject(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Удалён: %s\n", args[0])
			return nil
		},
	}
}
