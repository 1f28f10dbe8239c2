package repository

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

const (
	usersTable      = "users"
	contactsTable   = "contacts"
	activitiesTable = "activities"
)

var longText = map[string]string{dialect.Postgres: "text"}

var (
	// UsersColumns holds the columns for the "users" table.
	UsersColumns = []*schema.Column{
		{Name: "id", Type: field.TypeUUID},
		{Name: "name", Type: field.TypeString, Size: 200},
		{Name: "email", Type: field.TypeString, Unique: true, Size: 320},
		{Name: "password_hash", Type: field.TypeString},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "updated_at", Type: field.TypeTime},
	}
	UsersTable = &schema.Table{
		Name:       usersTable,
		Columns:    UsersColumns,
		PrimaryKey: []*schema.Column{UsersColumns[0]},
	}

	// ContactsColumns holds the columns for the "contacts" table.
	ContactsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeUUID},
		{Name: "user_id", Type: field.TypeUUID},
		{Name: "company", Type: field.TypeString, Default: "", SchemaType: longText},
		{Name: "name", Type: field.TypeString, Default: "", SchemaType: longText},
		{Name: "phone1", Type: field.TypeString, Default: "", Size: 32},
		{Name: "phone2", Type: field.TypeString, Default: "", Size: 32},
		{Name: "phone3", Type: field.TypeString, Default: "", Size: 32},
		{Name: "email", Type: field.TypeString, Default: "", SchemaType: longText},
		{Name: "website", Type: field.TypeString, Default: "", SchemaType: longText},
		{Name: "address", Type: field.TypeString, Default: "", SchemaType: longText},
		{Name: "note", Type: field.TypeString, Default: "", SchemaType: longText},
		{Name: "raw_text", Type: field.TypeString, Default: "", SchemaType: longText},
		{Name: "sent", Type: field.TypeBool, Default: false},
		{Name: "sent_at", Type: field.TypeTime, Nullable: true},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "updated_at", Type: field.TypeTime},
	}
	ContactsTable = &schema.Table{
		Name:       contactsTable,
		Columns:    ContactsColumns,
		PrimaryKey: []*schema.Column{ContactsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "contacts_users_contacts",
				Columns:    []*schema.Column{ContactsColumns[1]},
				RefColumns: []*schema.Column{UsersColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{Name: "contact_user_id_created_at", Columns: []*schema.Column{ContactsColumns[1], ContactsColumns[14]}},
			{Name: "contact_user_id_sent", Columns: []*schema.Column{ContactsColumns[1], ContactsColumns[12]}},
		},
	}

	// ActivitiesColumns holds the columns for the "activities" table.
	ActivitiesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeUUID},
		{Name: "user_id", Type: field.TypeUUID},
		{Name: "action", Type: field.TypeString, Size: 32},
		{Name: "contact_id", Type: field.TypeUUID, Nullable: true},
		{Name: "details", Type: field.TypeString, Default: "", SchemaType: longText},
		{Name: "created_at", Type: field.TypeTime},
	}
	ActivitiesTable = &schema.Table{
		Name:       activitiesTable,
		Columns:    ActivitiesColumns,
		PrimaryKey: []*schema.Column{ActivitiesColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "activities_users_activities",
				Columns:    []*schema.Column{ActivitiesColumns[1]},
				RefColumns: []*schema.Column{UsersColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{Name: "activity_user_id_created_at", Columns: []*schema.Column{ActivitiesColumns[1], ActivitiesColumns[5]}},
		},
	}

	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{UsersTable, ContactsTable, ActivitiesTable}
)

func init() {
	ContactsTable.ForeignKeys[0].RefTable = UsersTable
	ActivitiesTable.ForeignKeys[0].RefTable = UsersTable
}

// Migrate creates missing tables, columns and indexes. Existing data is kept.
func Migrate(ctx context.Context, db *DB) error {
	m, err := schema.NewMigrate(db.Driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	if err := m.Create(ctx, Tables...); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
