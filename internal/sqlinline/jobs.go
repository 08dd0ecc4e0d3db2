package sqlinline

const QInsertJob = `--sql b70c41ae-eb62-4e70-ae96-84dc79d6f1ad
insert into appraisal_jobs (id, owner_id, input_images, condition, status, created_at)
values ($1::uuid, $2::uuid, $3::text[], $4::text, 'pending', now())
returning created_at;
`

// Conditional claim: only a pending row may move to processing, so a job is
// never picked up twice and started_at is written exactly once.
const QClaimJob = `--sql e89d8a52-76fa-4bdf-b70e-eea95abee558
update appraisal_jobs
set status = 'processing', started_at = now()
where id = $1::uuid and status = 'pending'
returning id, owner_id, input_images, condition, status, created_at, started_at;
`

const QCompleteJob = `--sql 4274e66f-eec4-4eeb-8d71-12e014a89b60
update appraisal_jobs
set status = 'completed', completed_at = now(), result_json = $2::jsonb, record_id = $3::uuid
where id = $1::uuid and status = 'processing';
`

const QFailJob = `--sql 35ef185f-ccf0-4088-988a-158fc99100f3
update appraisal_jobs
set status = 'failed', completed_at = now(), error_message = $2::text
where id = $1::uuid and status = 'processing';
`

const QSelectJob = `--sql 8b2a3e2d-fda0-463c-887f-14ad2d65a452
select id, owner_id, input_images, condition, status, result_json, record_id, coalesce(error_message, ''), created_at, started_at, completed_at
from appraisal_jobs
where id = $1::uuid;
`

const QSelectJobForOwner = `--sql 91c3604e-f4aa-4689-b946-32b2c7c19e8a
select id, owner_id, input_images, condition, status, result_json, record_id, coalesce(error_message, ''), created_at, started_at, completed_at
from appraisal_jobs
where id = $1::uuid and owner_id = $2::uuid;
`

const QSelectRecentJobsByOwner = `--sql b0970976-a974-4404-8ec9-f7a623271d35
select id, owner_id, input_images, condition, status, result_json, record_id, coalesce(error_message, ''), created_at, started_at, completed_at
from appraisal_jobs
where owner_id = $1::uuid and created_at >= $2::timestamptz
order by created_at desc;
`

// Reaper sweep for rows orphaned by a killed process mid-pipeline.
const QFailExpiredJobs = `--sql a43dc991-654d-4f72-b8ab-22df5190c068
update appraisal_jobs
set status = 'failed', completed_at = now(), error_message = $2::text
where status = 'processing' and started_at < $1::timestamptz;
`
