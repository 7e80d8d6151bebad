package hh

// Ranked selector lists for hh.ru markup. The first selector that matches
// wins; older layouts stay at the end of each list.
var (
	CardSelectors = []string{
		"[data-qa='vacancy-serp__vacancy']",
		"[data-qa='serp-item']",
		".serp-item",
		"div[data-vacancy-id]",
	}

	TitleSelectors = []string{
		"[data-qa='serp-item__title-text']",
		"[data-qa='serp-item__title']",
		"[data-qa='vacancy-serp__vacancy-title']",
	}

	LinkSelectors = []string{
		"a[data-qa='serp-item__title']",
		"a[data-qa='vacancy-serp__vacancy-title']",
		"a.bloko-link[href*='/vacancy/']",
		"a[href*='/vacancy/']",
	}

	ApplyButtonSelectors = []string{
		"[data-qa='vacancy-serp__vacancy_response']",
		"a[href*='/applicant/vacancy_response']",
	}

	RespondedSelectors = []string{
		"[data-qa='vacancy-serp__vacancy_responded']",
		"[data-qa='vacancy-serp__vacancy_invited']",
	}

	NextPageSelectors = []string{
		"[data-qa='pager-next']",
		".bloko-pagination__next",
		"a.bloko-button[aria-label='Следующая страница']",
	}

	RelocationConfirmSelectors = []string{
		"[data-qa='relocation-warning-confirm']",
	}

	ModalSelectors = []string{
		"[data-qa='modal-wrapper']",
		"[data-qa='vacancy-response-popup']",
		".bloko-modal",
		"[role='dialog']",
	}

	RequiredQuestionSelectors = []string{
		"[data-qa='vacancy-response-letter-required']",
		"[data-qa='task-body']",
		"[data-qa='employer-asking-for-test']",
	}

	ResumeSelectSelectors = []string{
		"[data-qa='resume-select']",
		"[data-qa='vacancy-response-letter-resume-select']",
		"select[data-qa*='resume']",
		".bloko-select-toggle",
	}

	ResumeOptionSelectors = []string{
		"[data-qa='resume-select-option']",
		"[data-qa='vacancy-response-letter-resume-option']",
		"[role='option']",
		".bloko-menu-item",
	}

	CoverLetterToggleSelectors = []string{
		"[data-qa='vacancy-response-letter-toggle']",
		"[data-qa='add-cover-letter']",
	}

	CoverLetterInputSelectors = []string{
		"[data-qa='vacancy-response-popup-form-letter-input']",
		"textarea[name='letter']",
		"[role='dialog'] textarea",
	}

	SubmitSelectors = []string{
		"[data-qa='vacancy-response-submit-popup']",
		"[data-qa='vacancy-response-letter-submit']",
		"[data-qa='vacancy-response-submit']",
		"[role='dialog'] button[type='submit']",
	}

	CloseSelectors = []string{
		"[data-qa='vacancy-response-letter-close']",
		"[data-qa='modal-close']",
		".bloko-modal-close-button",
		"button[aria-label='Закрыть']",
	}

	AuthSelectors = []string{
		"[data-qa='mainmenu_myResumes']",
		"[data-qa='mainmenu_applicantProfile']",
		".applicant-resumes-title",
	}
)
