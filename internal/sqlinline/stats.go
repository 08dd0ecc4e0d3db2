package sqlinline

const QStatsSummary = `--sql 7e4a4f2e-4645-4183-828b-fa55666329eb
select
  count(*) filter (where status = 'pending')                                  as pending,
  count(*) filter (where status = 'processing')                               as processing,
  count(*) filter (where status = 'completed')                                as completed,
  count(*) filter (where status = 'failed')                                   as failed,
  count(*)                                                                    as total,
  count(*) filter (where status = 'completed'
                     and completed_at >= now() - interval '24 hours')         as completed_last_24h
from appraisal_jobs;
`
