package core

import (
	"context"
	"fmt"
	"os"
	"strings"

	"casefile/internal/auth"
	"casefile/pkg/domain"
)

// Canonical role names seeded at bootstrap. Role definitions are data; the
// service only hardwires the citizen name for visibility scoping.
const (
	RoleAdmin        = "admin"
	RoleInvestigator = "investigator"
	RoleOfficer      = "officer"
	RoleCitizen      = "citizen"
)

// Bootstrap account identities. Passwords come from the environment with
// development fallbacks.
const (
	seedAdminEmail   = "admin@casefile.local"
	seedOfficerEmail = "officer@casefile.local"

	envAdminPassword   = "CASEFILE_ADMIN_PASSWORD"
	envOfficerPassword = "CASEFILE_OFFICER_PASSWORD"

	defaultAdminPassword   = "casefile-admin"
	defaultOfficerPassword = "casefile-officer"
)

type seedRole struct {
	name        string
	description string
	permissions []Permission
}

func defaultRoles() []seedRole {
	return []seedRole{
		{
			name:        RoleAdmin,
			description: "Full administrative control over records, users, and the statute catalog.",
			permissions: []Permission{
				domain.PermCaseRead, domain.PermCaseWrite, domain.PermCaseClose,
				domain.PermCaseReopen, domain.PermFIRWrite, domain.PermPartyWrite,
				domain.PermEvidenceRead, domain.PermEvidenceWrite, domain.PermNoteWrite,
				domain.PermCitationWrite, domain.PermSectionWrite, domain.PermReportRun,
				domain.PermUserManage,
			},
		},
		{
			name:        RoleInvestigator,
			description: "Senior investigating officer able to close, reopen, and charge cases.",
			permissions: []Permission{
				domain.PermCaseRead, domain.PermCaseWrite, domain.PermCaseClose,
				domain.PermCaseReopen, domain.PermFIRWrite, domain.PermPartyWrite,
				domain.PermEvidenceRead, domain.PermEvidenceWrite, domain.PermNoteWrite,
				domain.PermCitationWrite, domain.PermReportRun,
			},
		},
		{
			name:        RoleOfficer,
			description: "Field officer recording cases, reports, parties, and notes.",
			permissions: []Permission{
				domain.PermCaseRead, domain.PermCaseWrite, domain.PermFIRWrite,
				domain.PermPartyWrite, domain.PermEvidenceRead, domain.PermNoteWrite,
				domain.PermReportRun,
			},
		},
		{
			name:        RoleCitizen,
			description: "Complainant scoped to the cases they filed.",
			permissions: []Permission{
				domain.PermCaseRead, domain.PermFIRWrite,
			},
		},
	}
}

// defaultLegalSections returns the statute catalog installed at bootstrap:
// the Bharatiya Nyaya Sanhita offences and Bharatiya Nagarik Suraksha
// Sanhita procedures the service cites most.
func defaultLegalSections() []LegalSection {
	return []LegalSection{
		{Code: "103", Statute: "BNS", Title: "Murder", Category: "murder", Description: "Whoever causes death by doing an act with the intention of causing death, or with the intention of causing such bodily injury as is likely to cause death, or with the knowledge that he is likely by such act to cause death, commits the offence of culpable homicide."},
		{Code: "304", Statute: "BNS", Title: "Theft", Category: "theft", Description: "Whoever intends to take dishonestly any movable property out of the possession of any person without that person's consent, moves that property in order to such taking, is said to commit theft."},
		{Code: "354", Statute: "BNS", Title: "Assault", Category: "assault", Description: "Whoever assaults or uses criminal force to any person, intending to outrage or knowing it to be likely that he will thereby outrage the modesty of that person, shall be punished with imprisonment of either description for a term which shall not be less than one year but which may extend to five years, and shall also be liable to fine."},
		{Code: "420", Statute: "BNS", Title: "Fraud", Category: "fraud", Description: "Whoever cheats and thereby dishonestly induces the person deceived to deliver any property to any person, or to make, alter or destroy the whole or any part of a valuable security, or anything which is signed or sealed, commits criminal breach of trust."},
		{Code: "506", Statute: "BNS", Title: "Intimidation", Category: "intimidation", Description: "Whoever threatens another with any injury to his person, reputation or property, or to the person or reputation of any one in whom that person is interested, with intent to cause alarm to that person, or to cause that person to do any act which he is not legally bound to do, or to omit to do any act which that person is legally entitled to do, as the means of avoiding the execution of such threat, commits criminal intimidation."},
		{Code: "143", Statute: "BNS", Title: "Rioting", Category: "public order", Description: "Whenever force or violence is used by an unlawful assembly, or by any member thereof, in prosecution of the common object of such assembly, every member of such assembly is guilty of the offence of rioting."},
		{Code: "302", Statute: "BNS", Title: "Kidnapping", Category: "kidnapping", Description: "Whoever conveys any person beyond the limits of India without the consent of that person, or of some person legally authorized to consent on behalf of that person, is said to kidnap that person from India."},
		{Code: "120B", Statute: "BNS", Title: "Criminal Conspiracy", Category: "conspiracy", Description: "Whoever is a party to a criminal conspiracy to commit an offence punishable with death, imprisonment for life or rigorous imprisonment for a term of two years or upwards, shall, where no express provision is made in this Code for the punishment of such a conspiracy, be punished with the same punishment as if he had abetted such offence."},
		{Code: "41", Statute: "BNSS", Title: "Arrest Procedures", Category: "procedure", Description: "Any police officer may without an order from a Magistrate and without a warrant, arrest any person who commits, in the presence of a police officer, a cognizable offence; or who has been concerned in any cognizable offence, or against whom a reasonable complaint has been made, or credible information has been received, or a reasonable suspicion exists, of his having been so concerned."},
		{Code: "154", Statute: "BNSS", Title: "FIR Registration", Category: "procedure", Description: "Every information relating to the commission of a cognizable offence, if given orally to an officer in charge of a police station, shall be reduced to writing by him or under his direction, and be read over to the informant; and every such information, whether given in writing or reduced to writing as aforesaid, shall be signed by the person giving it, and the substance thereof shall be entered in a book to be kept by such officer in such form as the State Government may prescribe in this behalf."},
		{Code: "161", Statute: "BNSS", Title: "Examination of Witnesses", Category: "procedure", Description: "Any police officer making an investigation may examine orally any person supposed to be acquainted with the facts and circumstances of the case."},
		{Code: "173", Statute: "BNSS", Title: "Investigation Report", Category: "procedure", Description: "Every investigation shall be completed without unnecessary delay. When the investigation has been completed, the officer in charge of the police station shall forward to a Magistrate empowered to take cognizance of the offence on a police report, a report in the prescribed form."},
	}
}

// SeedDefaults installs the role matrix, bootstrap accounts, and statute
// catalog into an empty or partially seeded store. The operation is
// idempotent: existing roles, accounts, and sections are left untouched.
func SeedDefaults(ctx context.Context, store PersistentStore) error {
	roleIDs := make(map[string]string, 4)
	for _, r := range store.ListRoles() {
		roleIDs[r.Name] = r.ID
	}

	_, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		for _, def := range defaultRoles() {
			if _, ok := roleIDs[def.name]; ok {
				continue
			}
			created, err := tx.CreateRole(Role{
				Name:        def.name,
				Description: def.description,
				Permissions: append([]Permission(nil), def.permissions...),
			})
			if err != nil {
				return fmt.Errorf("seed role %s: %w", def.name, err)
			}
			roleIDs[def.name] = created.ID
		}

		for _, code := range []struct {
			email, name, password, role string
			badge, department           *string
		}{
			{
				email:    seedAdminEmail,
				name:     "System Administrator",
				password: envPassword(envAdminPassword, defaultAdminPassword),
				role:     RoleAdmin,
			},
			{
				email:      seedOfficerEmail,
				name:       "Duty Officer",
				password:   envPassword(envOfficerPassword, defaultOfficerPassword),
				role:       RoleOfficer,
				badge:      strPtr("PCR-1001"),
				department: strPtr("Central Police Station"),
			},
		} {
			if _, exists := findUserByEmail(tx, code.email); exists {
				continue
			}
			hash, err := auth.HashPassword(code.password)
			if err != nil {
				return fmt.Errorf("seed account %s: %w", code.email, err)
			}
			if _, err := tx.CreateUser(User{
				Name:         code.name,
				Email:        code.email,
				District:     "Central",
				RoleID:       roleIDs[code.role],
				BadgeNumber:  code.badge,
				Department:   code.department,
				PasswordHash: hash,
				Active:       true,
			}); err != nil {
				return fmt.Errorf("seed account %s: %w", code.email, err)
			}
		}

		existing := make(map[string]bool)
		for _, s := range tx.Snapshot().ListLegalSections() {
			existing[sectionKey(s.Statute, s.Code)] = true
		}
		for _, section := range defaultLegalSections() {
			if existing[sectionKey(section.Statute, section.Code)] {
				continue
			}
			if _, err := tx.CreateLegalSection(section); err != nil {
				return fmt.Errorf("seed section %s %s: %w", section.Statute, section.Code, err)
			}
		}
		return nil
	})
	return err
}

func envPassword(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func findUserByEmail(tx Transaction, email string) (User, bool) {
	for _, u := range tx.Snapshot().ListUsers() {
		if strings.EqualFold(u.Email, email) {
			return u, true
		}
	}
	return User{}, false
}

// sectionKey is the case-insensitive identity of a statute section, matching
// the uniqueness rule.
func sectionKey(statute, code string) string {
	return strings.ToLower(statute) + "/" + strings.ToLower(code)
}

func strPtr(s string) *string { return &s }
