package main

import (
	"context"
	"time"

	"github.com/classpath/backend/core"
	"github.com/classpath/backend/core/account"
)

func (cli *commandLine) resetPassword(regNum, pwd string) error {
	ctx := context.Background()
	usr, err := cli.accountRepo.GetUser(ctx, account.GetFilter{RegistrationNumber: core.CleanString(regNum, true /* lower */)})
	if err != nil {
		return err
	}
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}
	usr.ModifiedAt = time.Now().UTC()
	_, err = cli.accountRepo.UpdateUser(ctx, usr, nil)
	return err
}
