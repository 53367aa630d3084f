package main

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/classpath/backend/core"
	"github.com/classpath/backend/core/account"
)

// addAdmin creates an admin User with its Admin profile in one go. The
// profile carries no institution yet; the admin creates one through the
// API afterwards.
func (cli *commandLine) addAdmin(regNum, email, cpf, pwd string) error {
	ctx := context.Background()
	regNum = core.CleanString(regNum, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	if err := cli.accountRepo.CheckUserUniqueness(ctx, regNum, email); err != nil {
		return err
	}
	if err := cli.accountRepo.CheckCPFUniqueness(ctx, cpf); err != nil {
		return err
	}

	now := time.Now().UTC()
	usr := account.User{
		RegistrationNumber: regNum,
		Email:              email,
		IsAdmin:            true,
		CreatedAt:          now,
		ModifiedAt:         now,
	}
	usr.SetActive(true)
	if err := usr.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "hashing password")
	}

	prof := &account.Profile{
		Role:       account.RoleAdmin,
		CPF:        cpf,
		CreatedAt:  now,
		ModifiedAt: now,
	}
	_, _, err := cli.accountRepo.CreateAccount(ctx, usr, prof)
	return err
}
