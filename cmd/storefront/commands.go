package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"git.sr.ht/~jakintosh/storefront/pkg/api"
	"git.sr.ht/~jakintosh/storefront/pkg/credentials"
	"git.sr.ht/~jakintosh/storefront/pkg/storefront"
)

var errUsage = errors.New("usage")

func (a *app) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "login":
		return a.login(ctx, args)
	case "register":
		return a.register(ctx, args)
	case "logout":
		if err := a.shop.Auth.Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "signed out")
		return nil
	case "whoami":
		return a.whoami(ctx, args)
	case "password":
		return a.password(ctx, args)
	case "products":
		return a.products(ctx, args)
	case "cart":
		return a.cart(ctx, args)
	case "wishlist":
		return a.wishlist(ctx, args)
	case "orders":
		return a.orders(ctx, args)
	case "users":
		return a.users(ctx, args)
	case "contact":
		return a.contact(ctx, args)
	case "messages":
		return a.messages(ctx, args)
	case "analytics":
		return a.analytics(ctx, args)
	case "session":
		return a.session(ctx, args)
	default:
		return errUsage
	}
}

func subcommand(args []string) (string, []string) {
	if len(args) == 0 {
		return "list", nil
	}
	return args[0], args[1:]
}

func parseID(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, errUsage
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", args[0])
	}
	return id, nil
}

func newFlags(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := newFlags("login", a.out)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil || *email == "" || *password == "" {
		return errUsage
	}

	identity, err := a.shop.Auth.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "signed in as %s\n", identity.Username)
	return nil
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := newFlags("register", a.out)
	username := fs.String("username", "", "account username")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil || *username == "" || *email == "" {
		return errUsage
	}

	identity, err := a.shop.Auth.Register(ctx, *username, *email, *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "registered and signed in as %s\n", identity.Username)
	return nil
}

func (a *app) whoami(ctx context.Context, args []string) error {
	fs := newFlags("whoami", a.out)
	verify := fs.Bool("verify", false, "re-check the account with the server")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	var identity *credentials.Identity
	var err error
	if *verify {
		identity, err = a.shop.Auth.VerifyStatus(ctx)
	} else {
		identity, err = a.shop.Auth.CurrentUser(ctx)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s <%s> id=%d role=%s\n", identity.Username, identity.Email, identity.ID, identity.Role)
	return nil
}

func (a *app) password(ctx context.Context, args []string) error {
	if len(args) > 0 {
		switch args[0] {
		case "reset-request":
			return a.resetRequest(ctx, args[1:])
		case "reset":
			return a.reset(ctx, args[1:])
		}
	}

	fs := newFlags("password", a.out)
	next := fs.String("new", "", "new password")
	if err := fs.Parse(args); err != nil || *next == "" {
		return errUsage
	}
	if err := a.shop.Auth.UpdatePassword(ctx, *next); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "password updated")
	return nil
}

func (a *app) resetRequest(ctx context.Context, args []string) error {
	fs := newFlags("password reset-request", a.out)
	email := fs.String("email", "", "account email")
	if err := fs.Parse(args); err != nil || *email == "" {
		return errUsage
	}
	msg, err := a.shop.Auth.RequestPasswordReset(ctx, *email)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, msg)
	return nil
}

func (a *app) reset(ctx context.Context, args []string) error {
	fs := newFlags("password reset", a.out)
	email := fs.String("email", "", "account email")
	code := fs.String("code", "", "code from the reset email")
	next := fs.String("new", "", "new password")
	if err := fs.Parse(args); err != nil || *email == "" || *code == "" || *next == "" {
		return errUsage
	}
	msg, err := a.shop.Auth.ResetPassword(ctx, *email, *code, *next)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, msg)
	return nil
}

func (a *app) products(ctx context.Context, args []string) error {
	if len(args) > 0 && args[0] == "top" {
		fs := newFlags("products top", a.out)
		limit := fs.Int("limit", storefront.DefaultTopSelling, "how many products")
		if err := fs.Parse(args[1:]); err != nil {
			return errUsage
		}
		products, err := a.shop.Products.TopSelling(ctx, *limit)
		if err != nil {
			return err
		}
		return a.printProducts(products)
	}
	if len(args) > 0 && args[0] == "show" {
		id, err := parseID(args[1:])
		if err != nil {
			return err
		}
		p, err := a.shop.Products.Get(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s by %s (%s, %s)\n%s\n%s\n", p.Name, p.Brand, p.Category, p.Gender, p.Price, p.Description)
		return nil
	}

	fs := newFlags("products", a.out)
	category := fs.String("category", "", "only list this category")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	products, err := a.shop.Products.List(ctx, *category)
	if err != nil {
		return err
	}
	return a.printProducts(products)
}

func (a *app) printProducts(products []api.Product) error {
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tPRICE")
	for _, p := range products {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", p.ID, p.Name, p.Category, p.Price)
	}
	return w.Flush()
}

func (a *app) cart(ctx context.Context, args []string) error {
	sub, rest := subcommand(args)
	switch sub {
	case "list":
		items, err := a.shop.Cart.List(ctx)
		if err != nil {
			return err
		}
		return a.printCart(items)
	case "add":
		id, err := parseID(rest)
		if err != nil {
			return err
		}
		item, err := a.shop.Cart.Add(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s x%d in cart\n", item.Product.Name, item.Quantity)
		return nil
	case "inc", "dec":
		id, err := parseID(rest)
		if err != nil {
			return err
		}
		delta := 1
		if sub == "dec" {
			delta = -1
		}
		item, err := a.shop.Cart.UpdateQuantity(ctx, id, delta)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s x%d in cart\n", item.Product.Name, item.Quantity)
		return nil
	case "remove":
		id, err := parseID(rest)
		if err != nil {
			return err
		}
		return a.shop.Cart.Remove(ctx, id)
	case "clear":
		return a.shop.Cart.Clear(ctx)
	default:
		return errUsage
	}
}

func (a *app) printCart(items []api.CartItem) error {
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "LINE\tPRODUCT\tQTY\tPRICE")
	for _, item := range items {
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", item.ID, item.Product.Name, item.Quantity, item.Product.Price)
	}
	fmt.Fprintf(w, "\tTOTAL\t\t%s\n", storefront.Total(items))
	return w.Flush()
}

func (a *app) wishlist(ctx context.Context, args []string) error {
	sub, rest := subcommand(args)
	switch sub {
	case "list":
		items, err := a.shop.Wishlist.List(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ENTRY\tPRODUCT\tPRICE")
		for _, item := range items {
			fmt.Fprintf(w, "%d\t%s\t%s\n", item.ID, item.ProductDetails.Name, item.ProductDetails.Price)
		}
		return w.Flush()
	case "add":
		id, err := parseID(rest)
		if err != nil {
			return err
		}
		item, err := a.shop.Wishlist.Add(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "saved %s\n", item.ProductDetails.Name)
		return nil
	case "remove":
		id, err := parseID(rest)
		if err != nil {
			return err
		}
		return a.shop.Wishlist.Remove(ctx, id)
	default:
		return errUsage
	}
}

func (a *app) orders(ctx context.Context, args []string) error {
	sub, rest := subcommand(args)
	switch sub {
	case "list":
		orders, err := a.shop.Orders.List(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ORDER\tDATE\tSTATUS\tTOTAL")
		for _, o := range orders {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", o.ID, o.Date.Format("2006-01-02"), o.Status, o.Total)
		}
		return w.Flush()
	case "show":
		id, err := parseID(rest)
		if err != nil {
			return err
		}
		order, err := a.shop.Orders.Get(ctx, id)
		if err != nil {
			return err
		}
		return a.printOrder(order)
	case "create":
		fs := newFlags("orders create", a.out)
		address := fs.String("address", "", "shipping address")
		if err := fs.Parse(rest); err != nil || *address == "" {
			return errUsage
		}
		order, err := a.shop.Orders.Create(ctx, *address)
		if err != nil {
			return err
		}
		return a.printOrder(order)
	case "cancel":
		id, err := parseID(rest)
		if err != nil {
			return err
		}
		order, err := a.shop.Orders.Cancel(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "order %d %s\n", order.ID, order.Status)
		return nil
	case "reorder":
		id, err := parseID(rest)
		if err != nil {
			return err
		}
		order, err := a.shop.Orders.Reorder(ctx, id)
		if err != nil {
			return err
		}
		return a.printOrder(order)
	default:
		return errUsage
	}
}

func (a *app) printOrder(o *api.Order) error {
	fmt.Fprintf(a.out, "order %d  %s  %s\nship to: %s\n", o.ID, o.Status, o.Date.Format("2006-01-02 15:04"), o.Address)
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, item := range o.Items {
		fmt.Fprintf(w, "  %s\tx%d\t%s\n", item.Product.Name, item.Quantity, item.Product.Price)
	}
	fmt.Fprintf(w, "  TOTAL\t\t%s\n", o.Total)
	return w.Flush()
}

func (a *app) users(ctx context.Context, args []string) error {
	sub, rest := subcommand(args)
	if sub == "list" {
		users, err := a.shop.Users.List(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tUSERNAME\tEMAIL\tROLE\tBLOCKED")
		for _, u := range users {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%t\n", u.ID, u.Username, u.Email, u.Role, u.Blocked)
		}
		return w.Flush()
	}

	id, err := parseID(rest)
	if err != nil {
		return err
	}
	var user *api.User
	switch sub {
	case "block", "unblock":
		user, err = a.shop.Users.SetBlocked(ctx, id, sub == "block")
	case "promote":
		user, err = a.shop.Users.SetRole(ctx, id, api.RoleAdmin)
	case "delete":
		if err := a.shop.Users.Delete(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "deleted user %d\n", id)
		return nil
	default:
		return errUsage
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s role=%s blocked=%t\n", user.Username, user.Role, user.Blocked)
	return nil
}

func (a *app) contact(ctx context.Context, args []string) error {
	fs := newFlags("contact", a.out)
	name := fs.String("name", "", "your name")
	email := fs.String("email", "", "reply address")
	message := fs.String("message", "", "what to say")
	if err := fs.Parse(args); err != nil || *message == "" {
		return errUsage
	}
	ack, err := a.shop.Contact.Send(ctx, storefront.ContactForm{
		Name:    *name,
		Email:   *email,
		Message: *message,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, ack)
	return nil
}

func (a *app) messages(ctx context.Context, args []string) error {
	sub, rest := subcommand(args)
	if sub == "list" {
		messages, err := a.shop.Messages.List(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tDATE\tFROM\tREAD\tREPLIED\tMESSAGE")
		for _, m := range messages {
			fmt.Fprintf(w, "%d\t%s\t%s <%s>\t%t\t%t\t%s\n",
				m.ID, m.CreatedAt.Format("2006-01-02"), m.Name, m.Email, m.IsRead, m.Replied, m.Message)
		}
		return w.Flush()
	}

	id, err := parseID(rest)
	if err != nil {
		return err
	}
	var message *api.ContactMessage
	switch sub {
	case "read":
		message, err = a.shop.Messages.MarkRead(ctx, id)
	case "replied":
		message, err = a.shop.Messages.MarkReplied(ctx, id)
	case "delete":
		if err := a.shop.Messages.Delete(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "deleted message %d\n", id)
		return nil
	default:
		return errUsage
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "message %d read=%t replied=%t\n", message.ID, message.IsRead, message.Replied)
	return nil
}

func (a *app) analytics(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return errUsage
	}
	stats, err := a.shop.Analytics.Get(ctx)
	if err != nil {
		return err
	}

	t := stats.Totals
	fmt.Fprintf(a.out, "sales %s  orders %d  users %d  admins %d  products %d\n",
		t.TotalSales, t.TotalOrders, t.TotalUsers, t.TotalAdmins, t.TotalProducts)
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MONTH\tORDERS\tSALES")
	for _, m := range stats.MonthlySales {
		fmt.Fprintf(w, "%s\t%d\t%s\n", m.Month, m.Orders, m.Sales)
	}
	fmt.Fprintln(w, "TOP PRODUCT\tSOLD\t")
	for _, p := range stats.TopProducts {
		fmt.Fprintf(w, "%s\t%d\t\n", p.Name, p.Sold)
	}
	return w.Flush()
}

// session watch follows the credential file and reports when another
// process signs in or out.
func (a *app) session(ctx context.Context, args []string) error {
	if len(args) != 1 || args[0] != "watch" {
		return errUsage
	}
	fs, ok := a.store.(*credentials.FileStore)
	if !ok {
		return fmt.Errorf("session watch needs the file store, not %q", a.cfg.Store.Kind)
	}

	changed := make(chan struct{}, 1)
	err := fs.Watch(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "watching %s\n", fs.Path())

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changed:
			identity, err := a.shop.Auth.CurrentUser(ctx)
			switch {
			case errors.Is(err, storefront.ErrNotSignedIn):
				fmt.Fprintln(a.out, "signed out")
			case err != nil:
				a.log.Warn("session read failed", "err", err)
			default:
				fmt.Fprintf(a.out, "signed in as %s\n", identity.Username)
			}
		}
	}
}
