package sqlite

import (
	"codeberg.org/miketth/lingoswitch/pkg/lingoswitch"
	"codeberg.org/miketth/lingoswitch/pkg/profilestore"
	"codeberg.org/miketth/lingoswitch/pkg/profilestore/sqlite/migrations"
	"context"
	"database/sql"
	"fmt"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

const platformTagKey = "platform_language_type_tag"

// Backend stores profiles in a sqlite database.
type Backend struct {
	db *sql.DB
}

func NewBackend(filename string, log *zap.SugaredLogger) (*Backend, error) {
	db, err := sql.Open("sqlite3", "file:"+filename+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := migrations.Migrate(db, log); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &Backend{db: db}, nil
}

func (b *Backend) Close() error {
	return b.db.Close()
}

func (b *Backend) Load() (*profilestore.State, error) {
	ctx := context.Background()

	var tag string
	err := b.db.QueryRowContext(ctx, `select value from meta where key = ?`, platformTagKey).Scan(&tag)
	switch {
	case err == sql.ErrNoRows:
		return nil, profilestore.ErrNoState
	case err != nil:
		return nil, fmt.Errorf("sqlite select meta: %w", err)
	}

	state := &profilestore.State{
		Profiles:                make(map[string]lingoswitch.LanguageProfile),
		PlatformLanguageTypeTag: tag,
	}

	if err := b.loadProfiles(ctx, state); err != nil {
		return nil, err
	}
	if err := b.loadLanguages(ctx, state); err != nil {
		return nil, err
	}
	if err := b.loadInputMethods(ctx, state); err != nil {
		return nil, err
	}

	return state, nil
}

func (b *Backend) loadProfiles(ctx context.Context, state *profilestore.State) error {
	rows, err := b.db.QueryContext(ctx, `select name, is_main_profile from profiles`)
	if err != nil {
		return fmt.Errorf("sqlite select profiles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p lingoswitch.LanguageProfile
		if err := rows.Scan(&p.Name, &p.IsMainProfile); err != nil {
			return fmt.Errorf("sqlite scan profile: %w", err)
		}
		state.Profiles[p.Name] = p
	}

	return rows.Err()
}

func (b *Backend) loadLanguages(ctx context.Context, state *profilestore.State) error {
	rows, err := b.db.QueryContext(ctx, `
		select profile, tag, spellchecking, handwriting
		from languages
		order by profile, position`)
	if err != nil {
		return fmt.Errorf("sqlite select languages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var profile string
		var l lingoswitch.Language
		if err := rows.Scan(&profile, &l.Tag, &l.Spellchecking, &l.Handwriting); err != nil {
			return fmt.Errorf("sqlite scan language: %w", err)
		}

		p := state.Profiles[profile]
		p.Languages = append(p.Languages, l)
		state.Profiles[profile] = p
	}

	return rows.Err()
}

func (b *Backend) loadInputMethods(ctx context.Context, state *profilestore.State) error {
	rows, err := b.db.QueryContext(ctx, `
		select profile, language_position, tip
		from input_methods
		order by profile, language_position, position`)
	if err != nil {
		return fmt.Errorf("sqlite select input methods: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var profile, tip string
		var langIdx int
		if err := rows.Scan(&profile, &langIdx, &tip); err != nil {
			return fmt.Errorf("sqlite scan input method: %w", err)
		}

		p, ok := state.Profiles[profile]
		if !ok || langIdx < 0 || langIdx >= len(p.Languages) {
			return fmt.Errorf("%w: dangling input method %q for %q", profilestore.ErrInvalidState, tip, profile)
		}
		p.Languages[langIdx].InputMethods = append(p.Languages[langIdx].InputMethods, tip)
	}

	return rows.Err()
}

// Save replaces the stored state in a single transaction.
func (b *Backend) Save(state *profilestore.State) error {
	ctx := context.Background()

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite begin: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"input_methods", "languages", "profiles", "meta"} {
		if _, err := tx.ExecContext(ctx, "delete from "+table); err != nil {
			return fmt.Errorf("sqlite clear %s: %w", table, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`insert into meta (key, value) values (?, ?)`,
		platformTagKey, state.PlatformLanguageTypeTag,
	); err != nil {
		return fmt.Errorf("sqlite insert meta: %w", err)
	}

	for _, name := range state.Names() {
		if err := insertProfile(ctx, tx, state.Profiles[name]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite commit: %w", err)
	}

	return nil
}

func insertProfile(ctx context.Context, tx *sql.Tx, p lingoswitch.LanguageProfile) error {
	if _, err := tx.ExecContext(ctx,
		`insert into profiles (name, is_main_profile) values (?, ?)`,
		p.Name, p.IsMainProfile,
	); err != nil {
		return fmt.Errorf("sqlite insert profile %q: %w", p.Name, err)
	}

	for i, l := range p.Languages {
		if _, err := tx.ExecContext(ctx,
			`insert into languages (profile, position, tag, spellchecking, handwriting) values (?, ?, ?, ?, ?)`,
			p.Name, i, l.Tag, l.Spellchecking, l.Handwriting,
		); err != nil {
			return fmt.Errorf("sqlite insert language %q: %w", l.Tag, err)
		}

		for j, tip := range l.InputMethods {
			if _, err := tx.ExecContext(ctx,
				`insert into input_methods (profile, language_position, position, tip) values (?, ?, ?, ?)`,
				p.Name, i, j, tip,
			); err != nil {
				return fmt.Errorf("sqlite insert input method %q: %w", tip, err)
			}
		}
	}

	return nil
}
